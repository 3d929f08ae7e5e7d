// Package plugin_manager file: internal/service/plugin_manager/naming_resolver_test.go
package plugin_manager

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reshmabidikar/killbill-platform/internal/core/domain"
)

func TestResolveNaming(t *testing.T) {
	t.Run("infers version from URI file name", func(t *testing.T) {
		identity, err := ResolveNaming("foo", "", "https://repo.example/plugin-foo-1.2.0.jar")
		require.NoError(t, err)
		assert.Equal(t, "foo", identity.Key)
		assert.Equal(t, "1.2.0", identity.Version)
		assert.Equal(t, "foo-1.2.0.jar", identity.ArtifactFileName)
	})

	t.Run("explicit version wins over URI", func(t *testing.T) {
		identity, err := ResolveNaming("foo", "2.0.0", "https://repo.example/plugin-foo-1.2.0.jar")
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", identity.Version)
		assert.Equal(t, "foo-2.0.0.jar", identity.ArtifactFileName)
	})

	t.Run("ignores query string when inferring", func(t *testing.T) {
		identity, err := ResolveNaming("bar", "", "https://repo.example/dl/bar-0.10.1.jar?token=abc&x=1.9.9")
		require.NoError(t, err)
		assert.Equal(t, "0.10.1", identity.Version)
		assert.Equal(t, "bar-0.10.1.jar", identity.ArtifactFileName)
	})

	t.Run("snapshot style version", func(t *testing.T) {
		identity, err := ResolveNaming("baz", "", "https://repo.example/baz-1.0.0-SNAPSHOT.jar")
		require.NoError(t, err)
		assert.Equal(t, "1.0.0-SNAPSHOT", identity.Version)
	})

	t.Run("default extension when URI has none", func(t *testing.T) {
		identity, err := ResolveNaming("qux", "3.1.4", "https://repo.example/download")
		require.NoError(t, err)
		assert.Equal(t, "qux-3.1.4.jar", identity.ArtifactFileName)
	})

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		first, err := ResolveNaming("foo", "", "https://repo.example/plugin-foo-1.2.0.jar")
		require.NoError(t, err)
		second, err := ResolveNaming("foo", "", "https://repo.example/plugin-foo-1.2.0.jar")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("empty key is a NamingError", func(t *testing.T) {
		_, err := ResolveNaming("", "1.0.0", "https://repo.example/foo-1.0.0.jar")
		require.Error(t, err)
		var namingErr *domain.NamingError
		assert.True(t, errors.As(err, &namingErr))
	})

	t.Run("no version anywhere is a NamingError", func(t *testing.T) {
		_, err := ResolveNaming("foo", "", "https://repo.example/download")
		require.Error(t, err)
		var namingErr *domain.NamingError
		assert.True(t, errors.As(err, &namingErr))
	})
}
