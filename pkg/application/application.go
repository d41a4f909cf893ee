package application

import (
	"fmt"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/storekit/platform/pkg/eventbus"
)

// Controller is a registrable group of HTTP routes.
type Controller interface {
	Key() string
	Register(r *mux.Router)
}

// Module wires a feature area (domain services + controllers) into the app.
type Module interface {
	Name() string
	Register(app Application) error
}

type Application interface {
	Pool() *pgxpool.Pool
	Logger() *logrus.Logger
	EventPublisher() eventbus.EventBus

	Controllers() []Controller
	Middleware() []mux.MiddlewareFunc

	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterServices(services ...interface{})

	// Service returns the registered service with the same concrete type as
	// the given value. Panics when no such service was registered.
	Service(service interface{}) interface{}
}

type ApplicationOptions struct {
	Pool     *pgxpool.Pool
	EventBus eventbus.EventBus
	Logger   *logrus.Logger
}

func New(opts *ApplicationOptions) Application {
	return &application{
		pool:     opts.Pool,
		eventBus: opts.EventBus,
		logger:   opts.Logger,
		services: map[reflect.Type]interface{}{},
	}
}

type application struct {
	pool        *pgxpool.Pool
	eventBus    eventbus.EventBus
	logger      *logrus.Logger
	controllers map[string]Controller
	orderedKeys []string
	middleware  []mux.MiddlewareFunc
	services    map[reflect.Type]interface{}
}

func (a *application) Pool() *pgxpool.Pool {
	return a.pool
}

func (a *application) Logger() *logrus.Logger {
	return a.logger
}

func (a *application) EventPublisher() eventbus.EventBus {
	return a.eventBus
}

func (a *application) Controllers() []Controller {
	out := make([]Controller, 0, len(a.controllers))
	for _, key := range a.orderedKeys {
		out = append(out, a.controllers[key])
	}
	return out
}

func (a *application) Middleware() []mux.MiddlewareFunc {
	return a.middleware
}

func (a *application) RegisterControllers(controllers ...Controller) {
	if a.controllers == nil {
		a.controllers = map[string]Controller{}
	}
	for _, c := range controllers {
		if _, exists := a.controllers[c.Key()]; !exists {
			a.orderedKeys = append(a.orderedKeys, c.Key())
		}
		a.controllers[c.Key()] = c
	}
}

func (a *application) RegisterMiddleware(middleware ...mux.MiddlewareFunc) {
	a.middleware = append(a.middleware, middleware...)
}

func (a *application) RegisterServices(services ...interface{}) {
	for _, svc := range services {
		a.services[serviceKey(svc)] = svc
	}
}

// Service accepts either a value or a pointer of the service type, so callers
// can write app.Service(services.OrganizationService{}).(*services.OrganizationService).
func (a *application) Service(service interface{}) interface{} {
	key := serviceKey(service)
	svc, ok := a.services[key]
	if !ok {
		panic(fmt.Sprintf("service %s not registered", key))
	}
	return svc
}

func serviceKey(service interface{}) reflect.Type {
	t := reflect.TypeOf(service)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Load registers each module in order, failing fast on the first error.
func Load(app Application, modules ...Module) error {
	for _, m := range modules {
		if err := m.Register(app); err != nil {
			return fmt.Errorf("failed to register module %s: %w", m.Name(), err)
		}
	}
	return nil
}
