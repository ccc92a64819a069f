package testutil

import (
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest        = errors.New("test error")
	ErrConstructor = errors.New("constructor error")
)

// Service0 has no dependencies.
type Service0 struct {
	id string
}

// NewService0 creates a Service0 with a fresh ID.
func NewService0() *Service0 {
	return &Service0{id: uuid.NewString()}
}

func (s *Service0) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Service1 depends on Service0.
type Service1 struct {
	Service0 *Service0
}

// Service2 depends on Service1 and has a defaulted string.
type Service2 struct {
	Service1 *Service1
	Extra    string `default:"blabla"`
}

// Plugin is implemented by PluginA and PluginB.
type Plugin interface {
	Name() string
}

// PluginA implements Plugin.
type PluginA struct {
	id string
}

func NewPluginA() *PluginA {
	return &PluginA{id: uuid.NewString()}
}

func (*PluginA) Name() string { return "a" }

// PluginB implements Plugin.
type PluginB struct {
	id string
}

func NewPluginB() *PluginB {
	return &PluginB{id: uuid.NewString()}
}

func (*PluginB) Name() string { return "b" }

// Logger is a test logger interface
type Logger interface {
	Log(msg string)
	Messages() []string
}

// MemoryLogger records messages in memory.
type MemoryLogger struct {
	messages []string
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(msg string) {
	l.messages = append(l.messages, msg)
}

func (l *MemoryLogger) Messages() []string {
	return append([]string(nil), l.messages...)
}

// Database is configured through a defaulted field.
type Database struct {
	DSN string `default:"memory://test"`
}

// Repository depends on a Database and optionally on a Logger.
type Repository struct {
	DB     *Database
	Logger Logger `autowire:"optional"`
}

// Config is used for selector tests.
type Config struct {
	Database DatabaseConfig
	Port     int
}

// DatabaseConfig is nested in Config.
type DatabaseConfig struct {
	DSN string
}

func (c DatabaseConfig) Driver() string {
	return "postgres"
}

// Store is built from a selected DSN.
type Store struct {
	DSN string
}

var widgets atomic.Int64

// Widget counts its constructions.
type Widget struct {
	Seq int64 `autowire:"-"`
}

// NewWidget creates a Widget with the next sequence number.
func NewWidget() *Widget {
	return &Widget{Seq: widgets.Add(1)}
}

// CycleA and CycleB depend on each other.
type CycleA struct {
	B *CycleB
}

type CycleB struct {
	A *CycleA
}

// Broken cannot be constructed.
type Broken struct {
	Reason string `autowire:"-"`
}

func NewBroken() (*Broken, error) {
	return nil, ErrConstructor
}

// Panicky panics during construction.
type Panicky struct {
	Reason string `autowire:"-"`
}

func NewPanicky() *Panicky {
	panic(ErrTest)
}
