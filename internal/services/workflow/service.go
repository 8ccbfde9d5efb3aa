// Package workflow implements the gated mutation engine behind the
// HTTP layer: permission-checked test-run transitions, the sample
// chain-of-custody ledger and the atomic reagent delivery transaction.
package workflow

import (
	"errors"

	"github.com/openlims/limsgo/internal/services/rbac"
	"gorm.io/gorm"
)

// Publisher receives workflow events for live dashboards. Implemented
// by the websocket hub; optional.
type Publisher interface {
	Publish(event string, payload interface{})
}

// Event names published on successful mutations
const (
	EventTestRunUpdated      = "test_run.updated"
	EventSampleRegistered    = "sample.registered"
	EventSampleStatusChanged = "sample.status_changed"
	EventCustodyAppended     = "custody.appended"
	EventOrderUpdated        = "order.updated"
	EventStockAdjusted       = "reagent.stock_adjusted"
)

// Service is the workflow façade. All mutations pass the permission
// resolver first; multi-row mutations run inside one store transaction
// so readers never observe partial state.
type Service struct {
	db     *gorm.DB
	rbac   *rbac.Resolver
	events Publisher
}

// NewService creates the workflow façade over a store handle
func NewService(db *gorm.DB, resolver *rbac.Resolver) *Service {
	return &Service{db: db, rbac: resolver}
}

// SetPublisher attaches an event publisher (nil disables publishing)
func (s *Service) SetPublisher(p Publisher) {
	s.events = p
}

func (s *Service) publish(event string, payload interface{}) {
	if s.events != nil {
		s.events.Publish(event, payload)
	}
}

// wrapStoreErr converts a raw store error into the workflow taxonomy.
// Record-not-found inside a lookup becomes NotFound with the given
// message; anything else is an internal error with a generic message.
func wrapStoreErr(err error, notFoundMsgFormat string, args ...interface{}) *Error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(notFoundMsgFormat, args...)
	}
	return internal(err)
}

// asWorkflowErr passes typed workflow errors through and wraps
// everything else as internal. Used on the error returned by
// gorm's Transaction, which surfaces the callback error verbatim
// after rolling back.
func asWorkflowErr(err error) *Error {
	if err == nil {
		return nil
	}
	var werr *Error
	if errors.As(err, &werr) {
		return werr
	}
	return internal(err)
}
