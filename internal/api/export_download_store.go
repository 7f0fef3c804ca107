package api

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
)

type exportDownload struct {
	filePath string
	filename string
}

// exportDownloadStore 一次性下载令牌；过期或取走后删除导出文件
type exportDownloadStore struct {
	items *cache.Cache
}

func newExportDownloadStore(ttl time.Duration) *exportDownloadStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	items := cache.New(ttl, ttl/2)
	items.OnEvicted(func(_ string, v interface{}) {
		if d, ok := v.(exportDownload); ok {
			_ = os.Remove(d.filePath)
		}
	})
	return &exportDownloadStore{items: items}
}

func (s *exportDownloadStore) put(filePath, filename string) (token string) {
	token = newRandomToken(24)
	s.items.SetDefault(token, exportDownload{filePath: filePath, filename: filename})
	return token
}

func (s *exportDownloadStore) get(token string) (exportDownload, bool) {
	v, ok := s.items.Get(token)
	if !ok {
		return exportDownload{}, false
	}
	d, ok := v.(exportDownload)
	return d, ok
}

// delete 删除令牌（同时删除文件）
func (s *exportDownloadStore) delete(token string) {
	s.items.Delete(token)
}

func newRandomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
