package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	client := NewClientFromUniversal(db, "test:", logging.NewNopLogger())
	s.cache = NewRedisCache(client, logging.NewNopLogger(), WithNamespace("hm:"), WithJitter(false))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type gridStub struct {
	Size  int      `json:"size"`
	Codes []string `json:"codes"`
}

func (s *CacheTestSuite) TestGet_Hit() {
	val := gridStub{Size: 5, Codes: []string{"R-1"}}
	raw, _ := json.Marshal(val)
	s.mock.ExpectGet("test:hm:org-1").SetVal(string(raw))

	var dest gridStub
	s.Require().NoError(s.cache.Get(context.Background(), "org-1", &dest))
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:hm:org-1").RedisNil()

	var dest gridStub
	err := s.cache.Get(context.Background(), "org-1", &dest)
	s.Equal(ErrCacheMiss, err)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestGet_CorruptPayload() {
	s.mock.ExpectGet("test:hm:org-1").SetVal("{not json")

	var dest gridStub
	err := s.cache.Get(context.Background(), "org-1", &dest)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func (s *CacheTestSuite) TestSet_NoJitter() {
	val := gridStub{Size: 3}
	raw, _ := json.Marshal(val)
	s.mock.ExpectSet("test:hm:k", raw, time.Minute).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "k", val, time.Minute))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:hm:k1", "test:hm:k2").SetVal(2)
	s.NoError(s.cache.Delete(context.Background(), "k1", "k2"))
	s.NoError(s.cache.Delete(context.Background()))
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func newMiniCache(t *testing.T) (Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	client := NewClientFromUniversal(rdb, "minrisk:", logging.NewNopLogger())
	return NewRedisCache(client, logging.NewNopLogger()), mr
}

func TestGetOrSet_LoadsOnceThenHits(t *testing.T) {
	cache, mr := newMiniCache(t)
	ctx := context.Background()
	var calls int32
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return gridStub{Size: 5}, nil
	}

	var first, second gridStub
	require.NoError(t, cache.GetOrSet(ctx, "grid", &first, time.Minute, loader))
	require.NoError(t, cache.GetOrSet(ctx, "grid", &second, time.Minute, loader))

	assert.Equal(t, 5, first.Size)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, mr.Exists("minrisk:cache:grid"))
}

func TestGetOrSet_LoaderError(t *testing.T) {
	cache, _ := newMiniCache(t)
	boom := errors.New("db down")

	var dest gridStub
	err := cache.GetOrSet(context.Background(), "grid", &dest, time.Minute, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestDeleteByPrefix(t *testing.T) {
	cache, mr := newMiniCache(t)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "org-1:residual", 1, time.Minute))
	require.NoError(t, cache.Set(ctx, "org-1:inherent", 2, time.Minute))
	require.NoError(t, cache.Set(ctx, "org-2:residual", 3, time.Minute))

	n, err := cache.DeleteByPrefix(ctx, "org-1:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, mr.Exists("minrisk:cache:org-2:residual"))
}

//Personal.AI order the ending
