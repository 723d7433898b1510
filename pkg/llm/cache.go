package llm

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
)

const cacheFile = "orbit-replies.gob"

// CacheEntry is a stored reply.
type CacheEntry struct {
	ExpiresAt time.Time
	Reply     string
}

// ReplyCache memoizes successful replies keyed by model, system instruction
// and prompt. With a directory set it persists entries to disk.
type ReplyCache struct {
	next       Generator
	cache      *otter.Cache[string, CacheEntry]
	logger     *slog.Logger
	saveCancel context.CancelFunc
	model      string
	dir        string
	saveWg     sync.WaitGroup
	ttl        time.Duration
	mu         sync.Mutex
}

// NewReplyCache wraps g. An empty dir keeps the cache in memory only.
func NewReplyCache(ctx context.Context, g Generator, model, dir string, ttl time.Duration, logger *slog.Logger) (*ReplyCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	c := &ReplyCache{
		next:   g,
		model:  model,
		dir:    dir,
		ttl:    ttl,
		logger: logger,
		cache: otter.Must(&otter.Options[string, CacheEntry]{
			MaximumSize:      10_000,
			InitialCapacity:  256,
			ExpiryCalculator: otter.ExpiryWriting[string, CacheEntry](ttl),
		}),
	}

	if dir == "" {
		return c, nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	if err := c.loadFromDisk(); err != nil {
		logger.Warn("failed to load reply cache from disk", "error", err)
	}
	logger.Info("reply cache initialized", "dir", dir, "entries_loaded", c.cache.EstimatedSize())
	c.startPeriodicSave(ctx)
	return c, nil
}

func (c *ReplyCache) key(prompt, system string) string {
	h := sha256.New()
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write([]byte(system))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

// Generate returns a cached reply or calls the wrapped generator and stores
// the result. Failures are never cached.
func (c *ReplyCache) Generate(ctx context.Context, prompt, system string) (string, error) {
	key := c.key(prompt, system)
	if entry, ok := c.cache.GetIfPresent(key); ok && time.Now().Before(entry.ExpiresAt) {
		c.logger.Debug("reply cache hit", "key", key[:12])
		return entry.Reply, nil
	}

	reply, err := c.next.Generate(ctx, prompt, system)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, CacheEntry{Reply: reply, ExpiresAt: time.Now().Add(c.ttl)})
	return reply, nil
}

// Len returns the approximate number of cached replies.
func (c *ReplyCache) Len() int {
	return c.cache.EstimatedSize()
}

func (c *ReplyCache) loadFromDisk() error {
	path := filepath.Join(c.dir, cacheFile)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening cache file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			c.logger.Debug("failed to close cache file", "error", closeErr)
		}
	}()

	var entries map[string]CacheEntry
	if err := gob.NewDecoder(file).Decode(&entries); err != nil {
		return fmt.Errorf("decoding cache file: %w", err)
	}

	now := time.Now()
	valid := 0
	for key, entry := range entries {
		if now.Before(entry.ExpiresAt) {
			c.cache.Set(key, entry)
			valid++
		}
	}
	c.logger.Debug("loaded reply cache", "path", path, "total_entries", len(entries), "valid_entries", valid)
	return nil
}

func (c *ReplyCache) saveToDisk() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := filepath.Join(c.dir, cacheFile)
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	defer func() {
		if removeErr := os.Remove(tempPath); removeErr != nil && !os.IsNotExist(removeErr) {
			c.logger.Debug("failed to remove temp file", "error", removeErr)
		}
	}()

	entries := make(map[string]CacheEntry)
	now := time.Now()
	for key, entry := range c.cache.All() {
		if now.Before(entry.ExpiresAt) {
			entries[key] = entry
		}
	}

	if err := gob.NewEncoder(file).Encode(entries); err != nil {
		_ = file.Close()
		return fmt.Errorf("encoding cache to file: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("syncing cache file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	c.logger.Debug("reply cache saved to disk", "entries", len(entries), "path", path)
	return nil
}

func (c *ReplyCache) startPeriodicSave(ctx context.Context) {
	saveCtx, cancel := context.WithCancel(ctx)
	c.saveCancel = cancel

	c.saveWg.Add(1)
	go func() {
		defer c.saveWg.Done()
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-saveCtx.Done():
				return
			case <-ticker.C:
				if err := c.saveToDisk(); err != nil {
					c.logger.Error("periodic reply cache save failed", "error", err)
				}
			}
		}
	}()
}

// Close stops periodic saving and writes the cache to disk when persistence is on.
func (c *ReplyCache) Close() error {
	if c.dir == "" {
		return nil
	}
	if c.saveCancel != nil {
		c.saveCancel()
	}
	c.saveWg.Wait()
	return c.saveToDisk()
}
