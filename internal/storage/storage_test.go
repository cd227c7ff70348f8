package storage_test

import (
	"context"
	"testing"

	"taskboard/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

// KVSuite runs the same contract against every KV implementation.
type KVSuite struct {
	suite.Suite
	kv  storage.KV
	ctx context.Context
}

func (s *KVSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *KVSuite) TestPutGetRoundTrip() {
	err := s.kv.Put(s.ctx, storage.KeyTasks, []byte(`[{"id":1}]`))
	s.Require().NoError(err)

	data, err := s.kv.Get(s.ctx, storage.KeyTasks)
	s.Require().NoError(err)
	s.Equal(`[{"id":1}]`, string(data))
}

func (s *KVSuite) TestOverwrite() {
	s.Require().NoError(s.kv.Put(s.ctx, storage.KeyUsers, []byte(`[]`)))
	s.Require().NoError(s.kv.Put(s.ctx, storage.KeyUsers, []byte(`[{"id":7}]`)))

	data, err := s.kv.Get(s.ctx, storage.KeyUsers)
	s.Require().NoError(err)
	s.Equal(`[{"id":7}]`, string(data))
}

func (s *KVSuite) TestMissingKey() {
	_, err := s.kv.Get(s.ctx, "taskboard:absent")
	s.ErrorIs(err, storage.ErrKeyNotFound)
}

func (s *KVSuite) TestDelete() {
	s.Require().NoError(s.kv.Put(s.ctx, storage.KeyConfig, []byte(`{}`)))
	s.Require().NoError(s.kv.Delete(s.ctx, storage.KeyConfig))

	_, err := s.kv.Get(s.ctx, storage.KeyConfig)
	s.ErrorIs(err, storage.ErrKeyNotFound)

	// Deleting an absent key is not an error.
	s.NoError(s.kv.Delete(s.ctx, storage.KeyConfig))
}

func (s *KVSuite) TestHealth() {
	s.NoError(s.kv.Health(s.ctx))
}

type FileKVSuite struct {
	KVSuite
}

func (s *FileKVSuite) SetupTest() {
	s.KVSuite.SetupTest()
	kv, err := storage.OpenFileKV(s.T().TempDir())
	s.Require().NoError(err)
	s.kv = kv
}

func TestFileKV(t *testing.T) {
	suite.Run(t, new(FileKVSuite))
}

type GormKVSuite struct {
	KVSuite
}

func (s *GormKVSuite) SetupTest() {
	s.KVSuite.SetupTest()
	kv, err := storage.OpenGormKV("sqlite", ":memory:")
	s.Require().NoError(err)
	s.kv = kv
}

func (s *GormKVSuite) TearDownTest() {
	s.NoError(s.kv.Close())
}

func TestGormKV(t *testing.T) {
	suite.Run(t, new(GormKVSuite))
}

type RedisKVSuite struct {
	KVSuite
	mini *miniredis.Miniredis
}

func (s *RedisKVSuite) SetupTest() {
	s.KVSuite.SetupTest()
	s.mini = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	s.kv = storage.NewRedisKVFromClient(client)
}

func (s *RedisKVSuite) TearDownTest() {
	s.NoError(s.kv.Close())
}

func TestRedisKV(t *testing.T) {
	suite.Run(t, new(RedisKVSuite))
}

func TestOpenGormKV_UnknownDriver(t *testing.T) {
	if _, err := storage.OpenGormKV("oracle", "dsn"); err == nil {
		t.Error("Expected an error for an unsupported driver")
	}
}

func TestOpenFileKV_EmptyDir(t *testing.T) {
	if _, err := storage.OpenFileKV(""); err == nil {
		t.Error("Expected an error for an empty directory path")
	}
}
