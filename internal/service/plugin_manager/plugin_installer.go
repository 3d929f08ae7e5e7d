// Package plugin_manager file: internal/service/plugin_manager/plugin_installer.go
package plugin_manager

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/reshmabidikar/killbill-platform/internal/core/domain"
)

// pluginInstaller 负责把已暂存的产物原子地落位到插件目录树:
// <pluginsDir>/<key>/<version>/<artifactFileName>
type pluginInstaller struct {
	pluginsDir string
	tmpRoot    string
}

func newPluginInstaller(pluginsDir, tmpRoot string) (*pluginInstaller, error) {
	if pluginsDir == "" {
		return nil, fmt.Errorf("插件安装目录(pluginsDir)不能为空")
	}
	if err := os.MkdirAll(pluginsDir, 0755); err != nil {
		return nil, fmt.Errorf("创建插件安装目录 '%s' 失败: %w", pluginsDir, err)
	}
	if tmpRoot == "" {
		tmpRoot = os.TempDir()
	}
	return &pluginInstaller{pluginsDir: pluginsDir, tmpRoot: tmpRoot}, nil
}

// createTmpDownloadDir 为一次安装分配独占的临时下载目录。
// 目录由本次安装独占持有，结束时无论成败都必须删除。
func (pi *pluginInstaller) createTmpDownloadDir() (string, error) {
	dir := filepath.Join(pi.tmpRoot, "kpm-download-"+uuid.New().String())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("创建临时下载目录失败 (%s): %w", dir, err)
	}
	return dir, nil
}

// install 把暂存文件落位到 (key, version) 对应的安装路径。
// 同一 (key, version) 的重复安装是幂等的覆盖；其他 key/版本不受影响。
// 写入走临时名再重命名，并发读取方不会观察到半成品文件。
func (pi *pluginInstaller) install(stagedFile string, identity domain.PluginIdentity) error {
	if err := validateArtifactFileName(identity.ArtifactFileName); err != nil {
		return &domain.InstallationError{Path: identity.ArtifactFileName, Cause: err}
	}

	installDir := filepath.Join(pi.pluginsDir, identity.Key, identity.Version)
	if err := os.RemoveAll(installDir); err != nil {
		return &domain.InstallationError{Path: installDir, Cause: fmt.Errorf("清理旧安装目录失败: %w", err)}
	}
	if err := os.MkdirAll(installDir, 0755); err != nil {
		return &domain.InstallationError{Path: installDir, Cause: fmt.Errorf("创建安装目录失败: %w", err)}
	}

	finalPath := filepath.Join(installDir, identity.ArtifactFileName)
	tmpPath := finalPath + ".installing"

	if err := copyFile(stagedFile, tmpPath); err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("警告: 删除安装残留文件失败 (%s): %v", tmpPath, rmErr)
		}
		return &domain.InstallationError{Path: finalPath, Cause: err}
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return &domain.InstallationError{Path: finalPath, Cause: fmt.Errorf("落位重命名失败: %w", err)}
	}

	log.Printf("🎉 [PluginInstaller] 插件 '%s' v%s 已落位: %s", identity.Key, identity.Version, finalPath)
	return nil
}

// installedArtifactPath 返回 (key, version) 的产物落位路径。
func (pi *pluginInstaller) installedArtifactPath(identity domain.PluginIdentity) string {
	return filepath.Join(pi.pluginsDir, identity.Key, identity.Version, identity.ArtifactFileName)
}

// validateArtifactFileName 拒绝包含路径分隔符或上跳片段的产物文件名。
func validateArtifactFileName(name string) error {
	if name == "" {
		return fmt.Errorf("产物文件名不能为空")
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(filepath.Clean(name)) {
		return fmt.Errorf("检测到潜在非法路径 (文件: %s)", name)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("打开暂存文件失败 (%s): %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("创建目标文件失败 (%s): %w", dst, err)
	}

	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("写入目标文件失败 (%s): %w", dst, err)
	}
	return nil
}

// verifyChecksum 校验文件的哈希值，期望格式 "sha256:<hex>"。
func verifyChecksum(filePath, expectedChecksum string) error {
	parts := strings.SplitN(expectedChecksum, ":", 2)
	if len(parts) != 2 || parts[0] != "sha256" {
		return fmt.Errorf("不支持的校验算法: %s (目前仅支持 'sha256')", parts[0])
	}

	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return err
	}

	actualChecksum := hex.EncodeToString(hasher.Sum(nil))
	if actualChecksum != parts[1] {
		return fmt.Errorf("校验和不匹配。期望: %s, 实际: %s", parts[1], actualChecksum)
	}
	return nil
}
