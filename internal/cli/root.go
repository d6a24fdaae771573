package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/activitytracker/internal/config"
	"github.com/julianstephens/activitytracker/internal/event"
	"github.com/julianstephens/activitytracker/internal/keyring"
	"github.com/julianstephens/activitytracker/internal/logger"
	"github.com/julianstephens/activitytracker/internal/storage"
	"github.com/julianstephens/activitytracker/internal/storage/postgres"
	"github.com/julianstephens/activitytracker/internal/storage/sqlite"
	"github.com/julianstephens/activitytracker/internal/utils"
	"github.com/julianstephens/activitytracker/internal/viewmodel"
)

// KeyringURI selects the PostgreSQL connection string held in the
// environment or the OS keyring
const KeyringURI = "keyring"

// Context is handed to every command's Run method
type Context struct {
	StoreURI  string
	ConfigDir string
	Config    *config.Config
	Runtime   config.RuntimeContext
	Logger    *log.Logger
	Out       io.Writer
	In        io.Reader

	ts    *utils.Timestamps
	model storage.Model
	vm    *viewmodel.ViewModel
}

// Timestamps returns the timestamp rules derived from the configuration
func (c *Context) Timestamps() *utils.Timestamps {
	if c.ts == nil {
		c.ts = utils.NewTimestamps(utils.WithDefaultDuration(c.config().DefaultDuration()))
	}
	return c.ts
}

func (c *Context) config() *config.Config {
	if c.Config == nil {
		c.Config = config.Default()
	}
	return c.Config
}

func (c *Context) storeURI() string {
	if c.StoreURI != "" {
		return c.StoreURI
	}
	return c.config().StoreURI
}

// Model opens the configured store once. It is not loaded.
func (c *Context) Model() (storage.Model, error) {
	if c.model != nil {
		return c.model, nil
	}
	m, err := OpenModel(c.storeURI(), storage.Options{
		OwnerLabel: c.config().Owner,
		Timestamps: c.Timestamps(),
		Logger:     c.Logger,
	})
	if err != nil {
		return nil, err
	}
	c.model = m
	return m, nil
}

// Load opens the store and reads its current contents
func (c *Context) Load() (storage.Model, error) {
	m, err := c.Model()
	if err != nil {
		return nil, err
	}
	if err := m.Load(""); err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}
	return m, nil
}

// ViewModel wraps the store in a viewmodel. The dispatcher is not started.
func (c *Context) ViewModel() (*viewmodel.ViewModel, error) {
	if c.vm != nil {
		return c.vm, nil
	}
	m, err := c.Model()
	if err != nil {
		return nil, err
	}
	vm, err := viewmodel.New(m, viewmodel.Options{
		Dispatcher: event.NewDispatcher(event.Options{
			PollInterval: c.config().Dispatcher.PollInterval,
			Logger:       c.Logger,
		}),
		Logger:     c.Logger,
		Timestamps: c.Timestamps(),
	})
	if err != nil {
		return nil, err
	}
	c.vm = vm
	return vm, nil
}

// Close stops the viewmodel and releases the store
func (c *Context) Close() error {
	if c.vm != nil {
		c.vm.Stop()
	}
	if c.model == nil {
		return nil
	}
	return c.model.Close()
}

// OpenModel picks a backend from the shape of uri:
// postgres:// URLs and "keyring" use PostgreSQL, .db/.sqlite/.sqlite3 paths
// use SQLite and anything else is a JSON document.
func OpenModel(uri string, opts storage.Options) (storage.Model, error) {
	switch {
	case postgres.IsConnString(uri):
		if err := postgres.ValidateConnString(uri); err != nil {
			return nil, err
		}
		opts.StoreURI = uri
		return postgres.NewStore(opts)
	case uri == KeyringURI:
		connStr, source, err := keyring.ResolveConnectionString()
		if err != nil {
			return nil, fmt.Errorf("no PostgreSQL connection string configured (set %s or run 'activitytracker config keyring set'): %w", keyring.EnvConnection, err)
		}
		logger.OrDiscard(opts.Logger).Debug("using connection string", "source", source, "conn", postgres.Redact(connStr))
		opts.StoreURI = connStr
		return postgres.NewStore(opts)
	case sqlite.IsPath(uri):
		path, err := storage.ValidateURI(uri)
		if err != nil {
			return nil, err
		}
		opts.StoreURI = path
		return sqlite.NewStore(opts)
	default:
		opts.StoreURI = uri
		return storage.NewFileModel(opts)
	}
}

// filePath returns the local path of a file-backed store
func filePath(m storage.Model) (string, bool) {
	uri := m.StoreURI()
	if postgres.IsConnString(uri) || strings.Contains(uri, "://") || strings.Contains(uri, "=") {
		return "", false
	}
	return uri, true
}

// displayURI hides any password in a connection string
func displayURI(uri string) string {
	if postgres.IsConnString(uri) || strings.Contains(uri, "=") {
		return postgres.Redact(uri)
	}
	return uri
}

func (c *Context) logger() *log.Logger {
	return logger.OrDiscard(c.Logger)
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) println(args ...interface{}) {
	fmt.Fprintln(c.out(), args...)
}

// confirm asks a yes/no question, defaulting to no
func (c *Context) confirm(question string) (bool, error) {
	c.printf("%s [y/N]: ", question)
	in := c.In
	if in == nil {
		in = os.Stdin
	}
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
