package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type extractFunc func(ctx context.Context, req Request) (*Extraction, error)

func (f extractFunc) Extract(ctx context.Context, req Request) (*Extraction, error) {
	return f(ctx, req)
}

func TestGuard(t *testing.T) {
	t.Run("passes value through", func(t *testing.T) {
		g := NewGuard(extractFunc(func(ctx context.Context, req Request) (*Extraction, error) {
			return &Extraction{Reply: "hi " + req.Text}, nil
		}), time.Second)

		e, err := g.Extract(context.Background(), Request{Text: "there"})
		require.NoError(t, err)
		assert.Equal(t, "hi there", e.Reply)
	})

	t.Run("timeout is unavailable", func(t *testing.T) {
		g := NewGuard(extractFunc(func(ctx context.Context, req Request) (*Extraction, error) {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			return &Extraction{Reply: "late"}, nil
		}), 20*time.Millisecond)

		start := time.Now()
		_, err := g.Extract(context.Background(), Request{})
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("provider ignoring context still times out", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		g := NewGuard(extractFunc(func(ctx context.Context, req Request) (*Extraction, error) {
			<-release
			return nil, nil
		}), 20*time.Millisecond)

		_, err := g.Extract(context.Background(), Request{})
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("panic is unavailable", func(t *testing.T) {
		g := NewGuard(extractFunc(func(ctx context.Context, req Request) (*Extraction, error) {
			panic("boom")
		}), time.Second)

		_, err := g.Extract(context.Background(), Request{})
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("unclassified error becomes unavailable", func(t *testing.T) {
		g := NewGuard(extractFunc(func(ctx context.Context, req Request) (*Extraction, error) {
			return nil, errors.New("socket closed")
		}), time.Second)

		_, err := g.Extract(context.Background(), Request{})
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("unparseable is preserved", func(t *testing.T) {
		g := NewGuard(extractFunc(func(ctx context.Context, req Request) (*Extraction, error) {
			return nil, ErrUnparseable
		}), time.Second)

		_, err := g.Extract(context.Background(), Request{})
		assert.ErrorIs(t, err, ErrUnparseable)
		assert.NotErrorIs(t, err, ErrUnavailable)
	})

	t.Run("nil extraction is unparseable", func(t *testing.T) {
		g := NewGuard(extractFunc(func(ctx context.Context, req Request) (*Extraction, error) {
			return nil, nil
		}), time.Second)

		_, err := g.Extract(context.Background(), Request{})
		assert.ErrorIs(t, err, ErrUnparseable)
	})
}
