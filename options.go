package matchrules

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/services"
)

// Option is a function that configures a Session
type Option func(*options) error

// options holds the configuration applied by New.
type options struct {
	id            string
	project       string
	sourceIDField string
	targetIDField string
	suggester     services.Suggester
	applier       services.Applier
	logger        *zerolog.Logger
}

func defaults() *options {
	return &options{
		id:            uuid.NewString(),
		sourceIDField: constants.IDField,
		targetIDField: constants.IDField,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithID sets the session identifier used in logs and events. A random UUID
// is used by default.
func WithID(id string) Option {
	return func(o *options) error {
		if id == "" {
			return errors.NewValidationError("id", id, "session id is empty")
		}
		o.id = id
		return nil
	}
}

// WithProject sets the project name recorded in snapshots.
func WithProject(project string) Option {
	return func(o *options) error {
		o.project = project
		return nil
	}
}

// WithIDFields sets the id field of source and target records.
func WithIDFields(source, target string) Option {
	return func(o *options) error {
		if source != "" {
			o.sourceIDField = source
		}
		if target != "" {
			o.targetIDField = target
		}
		return nil
	}
}

// WithSuggester configures the rule suggestion service.
func WithSuggester(s services.Suggester) Option {
	return func(o *options) error {
		o.suggester = s
		return nil
	}
}

// WithApplier configures the rule application service.
func WithApplier(a services.Applier) Option {
	return func(o *options) error {
		o.applier = a
		return nil
	}
}

// WithService configures both rule services from one client.
func WithService(svc services.Service) Option {
	return func(o *options) error {
		o.suggester = svc
		o.applier = svc
		return nil
	}
}

// WithLogger sets the logger. The logging package default is used otherwise.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}
