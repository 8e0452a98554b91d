package mocks

import (
	"context"
	"iter"
	"time"

	"segment-sync/core/kvstore"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of kvstore.Client
type Client struct {
	mock.Mock
}

func (m *Client) SAdd(ctx context.Context, key string, members ...string) error {
	args := m.Called(ctx, key, members)
	return args.Error(0)
}

func (m *Client) SRem(ctx context.Context, key string, members ...string) error {
	args := m.Called(ctx, key, members)
	return args.Error(0)
}

func (m *Client) SIsMember(ctx context.Context, key, member string) (bool, error) {
	args := m.Called(ctx, key, member)
	return args.Bool(0), args.Error(1)
}

func (m *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	args := m.Called(ctx, key)
	if members, ok := args.Get(0).([]string); ok {
		return members, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) SCard(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Client) SDiffStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	args := m.Called(ctx, dest, keys)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Client) SInterStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	args := m.Called(ctx, dest, keys)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Client) SUnionStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	args := m.Called(ctx, dest, keys)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Client) Del(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

func (m *Client) Scan(ctx context.Context, key string) iter.Seq2[string, error] {
	args := m.Called(ctx, key)
	if seq, ok := args.Get(0).(iter.Seq2[string, error]); ok {
		return seq
	}
	return func(yield func(string, error) bool) {}
}

func (m *Client) Pipeline() kvstore.Pipeline {
	args := m.Called()
	return args.Get(0).(kvstore.Pipeline)
}

func (m *Client) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Client) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Pipeline is a mock implementation of kvstore.Pipeline
type Pipeline struct {
	mock.Mock
}

func (m *Pipeline) SAdd(ctx context.Context, key string, members ...string) {
	m.Called(ctx, key, members)
}

func (m *Pipeline) SRem(ctx context.Context, key string, members ...string) {
	m.Called(ctx, key, members)
}

func (m *Pipeline) Len() int {
	args := m.Called()
	return args.Int(0)
}

func (m *Pipeline) Exec(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Pipeline) Discard() {
	m.Called()
}

// Seq builds a Scan result from fixed members followed by an optional error.
func Seq(members []string, err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, member := range members {
			if !yield(member, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}
