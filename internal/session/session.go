package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/biomegen/internal/world"
)

// Episode is one fully generated map and the snapshot that produced it.
type Episode struct {
	ID        uuid.UUID
	Config    world.Config
	Generator *world.Generator
	Map       *world.Map
	CreatedAt time.Time
	Elapsed   time.Duration
}

// Session holds the current episode. Episodes are replaced wholesale, never
// edited.
type Session struct {
	Workers int // Batch workers, 0 = GOMAXPROCS

	// OnEpisode runs after every successful regeneration, outside the lock.
	OnEpisode func(*Episode)

	applyMu sync.Mutex // Serializes regenerations
	mu      sync.RWMutex
	current *Episode

	subMu   sync.Mutex
	nextSub int
	subs    map[int]chan *Episode
}

// New generates the first episode for cfg.
func New(ctx context.Context, cfg world.Config, workers int) (*Session, error) {
	s := &Session{Workers: workers, subs: make(map[int]chan *Episode)}
	ep, err := s.build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.current = ep
	return s, nil
}

// Current returns the live episode.
func (s *Session) Current() *Episode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Apply computes the next snapshot and, if it differs from the current one,
// regenerates the whole map. On failure the previous episode stays live.
func (s *Session) Apply(ctx context.Context, a Action) (*Episode, bool, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	prev := s.Current()
	next, err := Next(prev.Config, a)
	if err != nil {
		return prev, false, err
	}
	if prev.Config.Equal(next) {
		return prev, false, nil
	}

	// Readers keep seeing prev until the new map is complete.
	ep, err := s.build(ctx, next)
	if err != nil {
		return prev, false, err
	}
	s.mu.Lock()
	s.current = ep
	s.mu.Unlock()

	slog.Info("episode replaced", "action", a.Kind, "previous", prev.ID, "episode", ep.ID)
	s.publish(ep)
	return ep, true, nil
}

// Publish announces the current episode to hooks and subscribers. Callers
// use it once after New, when hooks have been wired.
func (s *Session) Publish() {
	s.publish(s.Current())
}

func (s *Session) publish(ep *Episode) {
	if s.OnEpisode != nil {
		s.OnEpisode(ep)
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- ep:
		default:
			slog.Debug("subscriber lagging, episode dropped", "sub_id", id, "episode", ep.ID)
		}
	}
}

// Subscribe returns a channel that receives every new episode.
func (s *Session) Subscribe() (int, <-chan *Episode) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]chan *Episode)
	}
	s.nextSub++
	ch := make(chan *Episode, 4)
	s.subs[s.nextSub] = ch
	return s.nextSub, ch
}

// Unsubscribe closes and removes a subscription.
func (s *Session) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Session) build(ctx context.Context, cfg world.Config) (*Episode, error) {
	start := time.Now()

	gen, err := world.NewGenerator(cfg)
	if err != nil {
		return nil, err
	}
	m, err := world.GenerateMap(ctx, gen, s.Workers)
	if err != nil {
		return nil, fmt.Errorf("generate map: %w", err)
	}

	ep := &Episode{
		ID:        uuid.New(),
		Config:    cfg,
		Generator: gen,
		Map:       m,
		CreatedAt: start.UTC(),
		Elapsed:   time.Since(start),
	}
	slog.Info("map generated",
		"episode", ep.ID,
		"seed", cfg.Seed,
		"zoom", cfg.Zoom,
		"pan_x", cfg.PanX,
		"pan_y", cfg.PanY,
		"tiles", humanize.Comma(int64(m.TileCount())),
		"land", humanize.Comma(int64(m.LandTiles())),
		"elapsed", ep.Elapsed.Round(time.Millisecond),
	)
	return ep, nil
}
