// Package mock provides shared service implementations for the layers test
// suites.
package mock

import (
	"fmt"
	"sync/atomic"
)

// MockDB stands in for a pooled connection: it tracks connection state and
// how many times it was closed, so tests can assert single construction and
// exactly-once teardown.
type MockDB struct {
	connected atomic.Bool
	closes    atomic.Int32
}

func (m *MockDB) Connect() {
	m.connected.Store(true)
}

func (m *MockDB) Close() {
	m.connected.Store(false)
	m.closes.Add(1)
}

func (m *MockDB) IsConnected() bool {
	return m.connected.Load()
}

func (m *MockDB) CloseCount() int {
	return int(m.closes.Load())
}

// MockCache is a consumer service wired to a database instance by its
// provider.
type MockCache struct {
	DB *MockDB
}

func (m *MockCache) Get(key string) any {
	return nil
}

// FailingDB simulates a service whose connection attempt fails.
type FailingDB struct {
	MockDB
	ShouldFail bool
}

func (f *FailingDB) TryConnect() error {
	if f.ShouldFail {
		return fmt.Errorf("simulated connection failure")
	}
	f.Connect()
	return nil
}
