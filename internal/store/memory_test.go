package store

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(id string) *Job {
	return &Job{
		ID:         id,
		SourceRef:  "https://example.com/post",
		SourceType: "article",
		CreatedAt:  time.Now().UTC(),
	}
}

func TestMemoryStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates job in pending state", func(t *testing.T) {
		s := NewMemoryStore()
		job := newTestJob("abcd1234")

		require.NoError(t, s.Create(ctx, job))
		assert.Equal(t, StatusPending, job.Status)

		stored, err := s.Get(ctx, "abcd1234")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, stored.Status)
		assert.Equal(t, "https://example.com/post", stored.SourceRef)
	})

	t.Run("duplicate id returns conflict", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, newTestJob("abcd1234")))

		err := s.Create(ctx, newTestJob("abcd1234"))
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestMemoryStore_MarkProcessing(t *testing.T) {
	ctx := context.Background()

	t.Run("claims a pending job", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, newTestJob("abcd1234")))

		job, err := s.MarkProcessing(ctx, "abcd1234")
		require.NoError(t, err)
		assert.Equal(t, StatusProcessing, job.Status)
	})

	t.Run("missing job", func(t *testing.T) {
		s := NewMemoryStore()

		_, err := s.MarkProcessing(ctx, "missing1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("second claim loses", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, newTestJob("abcd1234")))

		_, err := s.MarkProcessing(ctx, "abcd1234")
		require.NoError(t, err)

		_, err = s.MarkProcessing(ctx, "abcd1234")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestMemoryStore_TerminalWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("complete writes payload atomically", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, newTestJob("abcd1234")))
		_, err := s.MarkProcessing(ctx, "abcd1234")
		require.NoError(t, err)

		metadata := Metadata{"word_count": 42}
		require.NoError(t, s.Complete(ctx, "abcd1234", "A Title", "the content", metadata))

		job, err := s.Get(ctx, "abcd1234")
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, job.Status)
		require.NotNil(t, job.Title)
		assert.Equal(t, "A Title", *job.Title)
		require.NotNil(t, job.Content)
		assert.Equal(t, "the content", *job.Content)
		assert.Equal(t, metadata, job.Metadata)
		assert.Nil(t, job.ErrorMessage)
	})

	t.Run("fail writes error message", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, newTestJob("abcd1234")))
		_, err := s.MarkProcessing(ctx, "abcd1234")
		require.NoError(t, err)

		require.NoError(t, s.Fail(ctx, "abcd1234", "fetch timed out"))

		job, err := s.Get(ctx, "abcd1234")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, job.Status)
		require.NotNil(t, job.ErrorMessage)
		assert.Equal(t, "fetch timed out", *job.ErrorMessage)
		assert.Nil(t, job.Title)
		assert.Nil(t, job.Content)
	})

	t.Run("complete requires processing state", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, newTestJob("abcd1234")))

		err := s.Complete(ctx, "abcd1234", "t", "c", nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("terminal states are final", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, newTestJob("abcd1234")))
		_, err := s.MarkProcessing(ctx, "abcd1234")
		require.NoError(t, err)
		require.NoError(t, s.Complete(ctx, "abcd1234", "t", "c", nil))

		assert.ErrorIs(t, s.Fail(ctx, "abcd1234", "late failure"), ErrInvalidTransition)
		assert.ErrorIs(t, s.Complete(ctx, "abcd1234", "t2", "c2", nil), ErrInvalidTransition)
		_, err = s.MarkProcessing(ctx, "abcd1234")
		assert.ErrorIs(t, err, ErrInvalidTransition)

		// The original payload is untouched
		job, err := s.Get(ctx, "abcd1234")
		require.NoError(t, err)
		assert.Equal(t, "t", *job.Title)
	})
}

func TestMemoryStore_RandomTransitionSequences(t *testing.T) {
	ctx := context.Background()

	// Fire arbitrary transition sequences at one job; exactly one claim and
	// one terminal write may ever succeed, regardless of order.
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 50; round++ {
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, newTestJob("abcd1234")))

		claims, terminals := 0, 0
		for step := 0; step < 10; step++ {
			switch rng.Intn(3) {
			case 0:
				if _, err := s.MarkProcessing(ctx, "abcd1234"); err == nil {
					claims++
				}
			case 1:
				if err := s.Complete(ctx, "abcd1234", "t", "c", nil); err == nil {
					terminals++
				}
			case 2:
				if err := s.Fail(ctx, "abcd1234", "boom"); err == nil {
					terminals++
				}
			}
		}

		assert.LessOrEqual(t, claims, 1, "round %d", round)
		assert.LessOrEqual(t, terminals, 1, "round %d", round)

		job, err := s.Get(ctx, "abcd1234")
		require.NoError(t, err)
		if terminals == 1 {
			assert.Contains(t, []string{StatusCompleted, StatusFailed}, job.Status)
		}
	}
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()

	t.Run("newest first with limit", func(t *testing.T) {
		s := NewMemoryStore()
		base := time.Now().UTC()
		for i := 0; i < 5; i++ {
			job := newTestJob(fmt.Sprintf("job%05d", i))
			job.CreatedAt = base.Add(time.Duration(i) * time.Second)
			require.NoError(t, s.Create(ctx, job))
		}

		jobs, err := s.List(ctx, 3, "")
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		assert.Equal(t, "job00004", jobs[0].ID)
		assert.Equal(t, "job00003", jobs[1].ID)
		assert.Equal(t, "job00002", jobs[2].ID)
	})

	t.Run("status filter", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, newTestJob("aaaa1111")))
		require.NoError(t, s.Create(ctx, newTestJob("bbbb2222")))

		_, err := s.MarkProcessing(ctx, "aaaa1111")
		require.NoError(t, err)
		require.NoError(t, s.Fail(ctx, "aaaa1111", "boom"))

		failed, err := s.List(ctx, 10, StatusFailed)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, "aaaa1111", failed[0].ID)

		pending, err := s.List(ctx, 10, StatusPending)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "bbbb2222", pending[0].ID)
	})

	t.Run("returned jobs are copies", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Create(ctx, newTestJob("abcd1234")))

		jobs, err := s.List(ctx, 10, "")
		require.NoError(t, err)
		jobs[0].Status = "mangled"

		stored, err := s.Get(ctx, "abcd1234")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, stored.Status)
	})
}

func TestNewID(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z0-9]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		assert.Regexp(t, pattern, id)
		seen[id] = true
	}

	// 1000 draws from 36^8 ids should not collide
	assert.Len(t, seen, 1000)
}
