package worker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// CacheManager управляет кэшами зависимостей jobs.
//
// Ключ кэша — content-хэш файла-манифеста, никогда не wall-clock время:
// два запуска с одинаковым манифестом попадают в одну и ту же запись.
// В рамках запуска кэш только читается; наполнение записи — отдельная
// забота step'ов job'а.
type CacheManager struct {
	// Dir — корневая директория кэшей.
	Dir string
}

// NewCacheManager создаёт CacheManager с корнем dir.
func NewCacheManager(dir string) *CacheManager {
	return &CacheManager{Dir: dir}
}

// Key вычисляет ключ кэша по содержимому манифеста.
func (m *CacheManager) Key(manifestPath string) (string, error) {
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", fmt.Errorf("read cache manifest %s: %w", manifestPath, err)
	}
	return CacheKey(content), nil
}

// Path возвращает директорию записи кэша для ключа.
// Существование директории не гарантируется: отсутствующая запись —
// это промах кэша, а не ошибка.
func (m *CacheManager) Path(key string) string {
	return filepath.Join(m.Dir, key)
}

// Exists проверяет наличие записи кэша.
func (m *CacheManager) Exists(key string) bool {
	info, err := os.Stat(m.Path(key))
	return err == nil && info.IsDir()
}

// CacheKey вычисляет ключ кэша из содержимого манифеста.
func CacheKey(content []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}
