// file: internal/downloader/transport.go
package downloader

import (
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/reshmabidikar/killbill-platform/internal/core/domain"
)

// Transport 按 URL scheme 把下载请求分派给合适的下载器，并提供
// 落盘下载的原子性保证：目标文件要么完整出现，要么完全不出现。
type Transport struct {
	downloaders []Downloader
}

// NewTransport 构造产物传输器。
// strictSSL 与连接/读取超时仅作用于 HTTP/HTTPS 下载；file:// 直接走本地复制。
func NewTransport(strictSSL bool, connectTimeout, readTimeout time.Duration) *Transport {
	return &Transport{
		downloaders: []Downloader{
			NewHTTPDownloader(strictSSL, connectTimeout, readTimeout),
			&FileDownloader{},
		},
	}
}

// Open 根据 URI 的 scheme 选择下载器并返回内容读取流。
func (t *Transport) Open(rawURI string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return nil, &domain.TransportError{URI: rawURI, Cause: fmt.Errorf("URI 解析失败: %w", err)}
	}
	for _, d := range t.downloaders {
		if d.SupportsScheme(u.Scheme) {
			return d.Download(u)
		}
	}
	return nil, &domain.TransportError{URI: rawURI, Cause: fmt.Errorf("没有找到支持协议 '%s' 的下载器", u.Scheme)}
}

// DownloadToFile 将 URI 的完整内容写入 destPath，按需创建父目录。
// 先写入临时名再重命名，失败时删除残留，绝不让半成品以最终名可见。
func (t *Transport) DownloadToFile(rawURI, destPath string) (err error) {
	reader, err := t.Open(rawURI)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			log.Printf("警告: 关闭下载流失败 (URI: %s): %v", rawURI, cerr)
		}
	}()

	if err = os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return &domain.TransportError{URI: rawURI, Cause: fmt.Errorf("创建下载目录失败: %w", err)}
	}

	tmpPath := destPath + ".part"
	outFile, err := os.Create(tmpPath)
	if err != nil {
		return &domain.TransportError{URI: rawURI, Cause: fmt.Errorf("创建临时下载文件失败: %w", err)}
	}

	written, err := io.Copy(outFile, reader)
	if cerr := outFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Printf("警告: 删除残留临时文件失败 (%s): %v", tmpPath, rmErr)
		}
		return &domain.TransportError{URI: rawURI, Cause: fmt.Errorf("下载写入失败: %w", err)}
	}

	if err = os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return &domain.TransportError{URI: rawURI, Cause: fmt.Errorf("重命名下载文件失败: %w", err)}
	}

	log.Printf("信息: 下载完成，源: %s，目标: %s，共写入 %d 字节", rawURI, destPath, written)
	return nil
}

// FetchLimited 读取 URI 的全部内容，超出 maxBytes 的部分被截断。
// 用于目录文档这类体积有上限的小文件。
func (t *Transport) FetchLimited(rawURI string, maxBytes int64) ([]byte, error) {
	reader, err := t.Open(rawURI)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil {
			log.Printf("警告: 关闭读取流失败 (URI: %s): %v", rawURI, cerr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(reader, maxBytes))
	if err != nil {
		return nil, &domain.TransportError{URI: rawURI, Cause: fmt.Errorf("读取内容失败: %w", err)}
	}
	return data, nil
}
