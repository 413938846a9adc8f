package repository

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/hiscore/internal/domain/model"
	"github.com/okian/hiscore/pkg/logger"
	"github.com/okian/hiscore/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then seq ASC where seq is the creation sequence, so
// in-order traversal yields the leaderboard from best to worst and equal
// scores keep their arrival order. Contents live only as long as the process.

// treap node
type node struct {
	seq   int64
	score int64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aSeq) ranks before (bScore, bSeq). The seq
// is the entry id, so this is model.Ranks on the treap key.
func less(aScore, aSeq, bScore, bSeq int64) bool {
	return model.Ranks(model.ScoreEntry{ID: aSeq, Score: aScore}, model.ScoreEntry{ID: bSeq, Score: bScore})
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, seq, score int64, prio uint64) *node {
	if n == nil {
		return &node{seq: seq, score: score, prio: prio, size: 1}
	}
	if less(score, seq, n.score, n.seq) {
		n.left = insert(n.left, seq, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, seq, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, seq, score int64) *node {
	if n == nil {
		return nil
	}
	if score == n.score && seq == n.seq {
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, seq, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, seq, score)
		}
	} else if less(score, seq, n.score, n.seq) {
		n.left = deleteNode(n.left, seq, score)
	} else {
		n.right = deleteNode(n.right, seq, score)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, bySeq map[int64]*model.ScoreEntry, out *[]model.ScoreEntry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, bySeq, out)
	if len(*out) < limit {
		if e, ok := bySeq[n.seq]; ok {
			*out = append(*out, *e)
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, bySeq, out)
	}
}

// TreapStore keeps every entry in a map by name and a treap by rank.
type TreapStore struct {
	mu     sync.RWMutex
	root   *node
	byName map[string]*model.ScoreEntry
	bySeq  map[int64]*model.ScoreEntry
	seq    int64
	closed bool

	now    func() time.Time
	logger logger.Logger
}

// NewTreapStore constructs an empty in-memory store.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := newSettings(opts...)
	st := &TreapStore{
		byName: make(map[string]*model.ScoreEntry),
		bySeq:  make(map[int64]*model.ScoreEntry),
		now:    s.now,
		logger: s.logger,
	}
	st.logger.Debug(ctx, "memory store ready")
	return st
}

// UpsertMax implements Store.UpsertMax in O(log n) expected time.
// The write lock is held across compare and write, so merges of the same
// name cannot lose updates.
func (s *TreapStore) UpsertMax(ctx context.Context, name string, score int64) (model.SubmitResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency(BackendMemory, "upsert", float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		metrics.RecordStorageError(BackendMemory, "upsert")
		return model.SubmitResult{}, storageErr("upsert", ErrClosed)
	}

	if e, ok := s.byName[name]; ok {
		if score <= e.Score {
			res := model.SubmitResult{Entry: *e}
			s.mu.Unlock()
			return res, nil
		}
		s.root = deleteNode(s.root, e.ID, e.Score)
		e.Score = score
		s.root = insert(s.root, e.ID, e.Score, rand.Uint64())
		res := model.SubmitResult{Entry: *e, Updated: true}
		s.mu.Unlock()
		return res, nil
	}

	s.seq++
	e := &model.ScoreEntry{ID: s.seq, Name: name, Score: score, CreatedAt: s.now()}
	s.byName[name] = e
	s.bySeq[e.ID] = e
	s.root = insert(s.root, e.ID, e.Score, rand.Uint64())
	count := len(s.byName)
	res := model.SubmitResult{Entry: *e, Created: true, Updated: true}
	s.mu.Unlock()

	metrics.UpdateTotalPlayers(count)
	return res, nil
}

// TopN returns the top entries by walking the treap in order.
func (s *TreapStore) TopN(ctx context.Context, limit int) ([]model.ScoreEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency(BackendMemory, "top_n", float64(time.Since(start).Microseconds())/1000)
	}()

	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storageErr("top_n", ErrClosed)
	}

	out := make([]model.ScoreEntry, 0, min(limit, len(s.byName)))
	collectTopN(s.root, limit, s.bySeq, &out)
	return out, nil
}

// Count returns the number of distinct names.
func (s *TreapStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, storageErr("count", ErrClosed)
	}
	return len(s.byName), nil
}

// Close drops the contents. Later calls fail with ErrClosed.
func (s *TreapStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.root = nil
	s.byName = map[string]*model.ScoreEntry{}
	s.bySeq = map[int64]*model.ScoreEntry{}
	return nil
}
