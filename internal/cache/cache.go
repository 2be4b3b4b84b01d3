// Package cache stores AI responses keyed by the content of the request.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/juju/loggo/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

var logger = loggo.GetLogger("lingua.cache")

// ResponseCache stores successful AI responses for a limited time.
// Entries are never invalidated before their TTL.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*models.AIResponse, bool, error)
	Set(ctx context.Context, key string, resp *models.AIResponse, ttl time.Duration) error
}

// Key derives the content-addressed key of a request. Every field that can
// change the generated output takes part; the user does not.
func Key(req models.AIRequest) string {
	h, _ := blake2b.New256(nil)
	for _, field := range []string{
		req.Prompt,
		req.ModelHint,
		req.SystemPrompt,
		string(req.Kind),
		strconv.FormatFloat(req.Temperature, 'g', -1, 64),
		strconv.Itoa(req.MaxTokens),
	} {
		// length prefix keeps field boundaries unambiguous
		h.Write([]byte(strconv.Itoa(len(field))))
		h.Write([]byte{':'})
		h.Write([]byte(field))
	}
	return "ai:response:" + hex.EncodeToString(h.Sum(nil))
}

// Stats reports cache performance counters.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (c *counters) record(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}

func (c *counters) stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func encode(resp *models.AIResponse) ([]byte, error) {
	return json.Marshal(resp)
}

func decode(data []byte) (*models.AIResponse, error) {
	var resp models.AIResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
