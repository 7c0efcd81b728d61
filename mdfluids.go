package mdfluids

import (
	"github.com/gpbraun/mdfluids/internal/persistence"
	"github.com/gpbraun/mdfluids/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Fluid                = api.Fluid
	State                = api.State
	Table                = api.Table
	PropertyMetadata     = api.PropertyMetadata
	PhaseMetadata        = api.PhaseMetadata
	PropertyRequest      = api.PropertyRequest
	PropertyRegistry     = api.PropertyRegistry
	PhaseRegistry        = api.PhaseRegistry
	HandlerRegistry      = api.HandlerRegistry
	PropertyHandler      = api.PropertyHandler
	RootSearchPolicy     = api.RootSearchPolicy
	Param                = api.Param
	PrimaryBackend       = api.PrimaryBackend
	PrimaryFactory       = api.PrimaryFactory
	ReferenceBackend     = api.ReferenceBackend
	ReferenceRequest     = api.ReferenceRequest
	ReferenceResult      = api.ReferenceResult
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver

	// TableStore archives sweep results.
	TableStore = persistence.TableStore
	// ReferenceCache stores reference backend results by request key.
	ReferenceCache = persistence.ReferenceCache
	TableFilter    = persistence.TableFilter
	Persistence    = persistence.Persistence
	StoreConfig    = persistence.StoreConfig
)

// Re-export common helpers.

var (
	NewLoggingObserver         = api.NewLoggingObserver
	NewCompositeObserver       = api.NewCompositeObserver
	NewDefaultPropertyRegistry = api.NewDefaultPropertyRegistry
	NewDefaultPhaseRegistry    = api.NewDefaultPhaseRegistry
	ParsePropertyString        = api.ParsePropertyString
	ClassifyPhase              = api.ClassifyPhase
	NewInMemoryStore           = persistence.NewInMemoryStore
	OpenPersistence            = persistence.Open
)

// Re-export the errors callers usually branch on.

var (
	ErrNotFound            = api.ErrNotFound
	ErrDuplicateKey        = api.ErrDuplicateKey
	ErrInvalidFormat       = api.ErrInvalidFormat
	ErrNoNormalizingFluid  = api.ErrNoNormalizingFluid
	ErrUnsupportedProperty = api.ErrUnsupportedProperty
	ErrDivisionByZero      = api.ErrDivisionByZero
	ErrNoPhase             = api.ErrNoPhase
	ErrTableNotFound       = persistence.ErrTableNotFound
)
