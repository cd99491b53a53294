package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/google/shlex"
	"github.com/xeipuuv/gojsonschema"

	"github.com/zhouzirui/dsa-tutor/backend/internal/model/problem"
)

// detailsSchema is the contract of the scraper's stdout.
const detailsSchema = `{
	"type": "object",
	"required": ["description", "found"],
	"properties": {
		"description": {"type": "string"},
		"found": {"type": "boolean"}
	}
}`

const previewLength = 100

// Config controls how the scraper process is started.
type Config struct {
	// Interpreters are tried in order; the next one is used only when the
	// previous cannot be started.
	Interpreters []string
	Script       string
	// Command, when set, replaces Interpreters+Script with a full command line.
	Command   string
	Timeout   time.Duration
	CacheSize int
}

// Service runs the external scraper. Fetch never returns an error: every
// failure degrades to problem.NotFound().
type Service struct {
	candidates [][]string
	timeout    time.Duration
	schema     *gojsonschema.Schema

	mu    sync.Mutex
	cache *lru.Cache
}

// New validates the configuration and prepares the output schema.
func New(cfg Config) (*Service, error) {
	var candidates [][]string
	if cfg.Command != "" {
		argv, err := shlex.Split(cfg.Command)
		if err != nil {
			return nil, fmt.Errorf("parse fetcher command: %w", err)
		}
		if len(argv) > 0 {
			candidates = append(candidates, argv)
		}
	} else {
		for _, interpreter := range cfg.Interpreters {
			candidates = append(candidates, []string{interpreter, cfg.Script})
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("fetcher: no command configured")
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(detailsSchema))
	if err != nil {
		return nil, fmt.Errorf("compile fetcher output schema: %w", err)
	}

	svc := &Service{
		candidates: candidates,
		timeout:    cfg.Timeout,
		schema:     schema,
	}
	if cfg.CacheSize > 0 {
		svc.cache = lru.New(cfg.CacheSize)
	}
	return svc, nil
}

// Fetch runs the scraper for url and returns its parsed result.
func (s *Service) Fetch(ctx context.Context, url string) problem.Details {
	if cached, ok := s.lookup(url); ok {
		log.Printf("[fetcher] cache hit for %s", url)
		return cached
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for _, base := range s.candidates {
		stdout, stderr, err := s.run(ctx, base, url)
		var startErr *startError
		if errors.As(err, &startErr) {
			log.Printf("[fetcher] cannot start %s: %v", base[0], startErr.err)
			continue
		}

		logStderr(stderr)
		if err != nil {
			log.Printf("[fetcher] scraper failed: %v", err)
			return problem.NotFound()
		}

		details, err := s.parse(stdout)
		if err != nil {
			log.Printf("[fetcher] invalid scraper output: %v", err)
			return problem.NotFound()
		}

		if details.Found {
			log.Printf("[fetcher] problem description fetched, length=%d", len(details.Description))
			log.Printf("[fetcher] first %d characters: %s", previewLength, preview(details.Description))
			s.store(url, details)
		} else {
			log.Printf("[fetcher] scraper could not find a description for %s", url)
		}
		return details
	}

	log.Printf("[fetcher] no interpreter could run the scraper; make sure it is installed and the script exists (%v)", s.candidates)
	return problem.NotFound()
}

type startError struct {
	err error
}

func (e *startError) Error() string { return e.err.Error() }

func (s *Service) run(ctx context.Context, base []string, url string) ([]byte, string, error) {
	args := append(append([]string(nil), base[1:]...), url)
	cmd := exec.CommandContext(ctx, base[0], args...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, "", &startError{err: err}
	}
	if err := cmd.Wait(); err != nil {
		return stdout.Bytes(), stderr.String(), err
	}
	return stdout.Bytes(), stderr.String(), nil
}

func (s *Service) parse(out []byte) (problem.Details, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return problem.Details{}, errors.New("empty output")
	}

	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(out))
	if err != nil {
		return problem.Details{}, err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return problem.Details{}, fmt.Errorf("schema mismatch: %s", strings.Join(msgs, "; "))
	}

	var details problem.Details
	if err := json.Unmarshal(out, &details); err != nil {
		return problem.Details{}, err
	}
	return details, nil
}

func (s *Service) lookup(url string) (problem.Details, bool) {
	if s.cache == nil {
		return problem.Details{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.cache.Get(url)
	if !ok {
		return problem.Details{}, false
	}
	return value.(problem.Details), true
}

func (s *Service) store(url string, details problem.Details) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	s.cache.Add(url, details)
	s.mu.Unlock()
}

func logStderr(stderr string) {
	if stderr == "" {
		return
	}
	for _, line := range strings.Split(stderr, "\n") {
		if strings.Contains(line, "ModuleNotFoundError") {
			log.Printf("[fetcher] python dependency missing, install the scraper requirements: %s", strings.TrimSpace(line))
			return
		}
	}
	log.Printf("[fetcher] scraper stderr: %s", strings.TrimSpace(stderr))
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) > previewLength {
		return string(runes[:previewLength])
	}
	return s
}
