package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mamaar/constprop/internal/config"
	"github.com/mamaar/constprop/pkg/inspection"
	"github.com/mamaar/constprop/pkg/refactor"
	"github.com/mamaar/constprop/pkg/watch"
)

// Name and Version are reported to clients in the initialize response
const (
	Name    = "constprop-lsp"
	Version = "0.1.0"
)

// Code action kind and commands understood by workspace/executeCommand
const (
	KindExtractConstant = "refactor.extract.constant"
	CommandPropagate    = "constprop.propagate"
	CommandIntroduce    = "constprop.introduceConstant"
)

var errExit = errors.New("exit requested")

// Options configure a Server
type Options struct {
	// Config replaces the configuration read from the workspace root
	Config *config.Config
	// Watch starts a file watcher on the workspace after initialization
	Watch    bool
	Debounce time.Duration
}

// document is an editor buffer the client has opened
type document struct {
	version int
	dirty   bool
}

// Server represents the LSP server
type Server struct {
	mu          sync.RWMutex
	engine      *refactor.DefaultEngine
	inspector   *inspection.Inspector
	session     *inspection.Session
	rootPath    string
	initialized bool
	applyEdit   bool
	createFiles bool
	docs        map[string]*document

	capabilities ServerCapabilities
	opts         Options
	logger       *zap.Logger

	conn    *Connection
	pmu     sync.Mutex
	pending map[string]chan *Message
	nextID  atomic.Int64

	stopWatch context.CancelFunc
	wg        sync.WaitGroup
}

// NewServer creates a new LSP server instance
func NewServer(opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Debounce == 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	return &Server{
		docs:    make(map[string]*document),
		pending: make(map[string]chan *Message),
		opts:    opts,
		logger:  logger,
		capabilities: ServerCapabilities{
			CodeActionProvider: &CodeActionOptions{
				CodeActionKinds: []string{KindExtractConstant},
			},
			ExecuteCommandProvider: &ExecuteCommandOptions{
				Commands: []string{CommandPropagate, CommandIntroduce},
			},
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindIncremental,
				Save:      &SaveOptions{IncludeText: false},
			},
		},
	}
}

// Start starts the LSP server
func (s *Server) Start(ctx context.Context, port int) error {
	if port == 0 {
		return s.ServeStdio(ctx)
	}
	return s.ServeTCP(ctx, port)
}

// ServeStdio serves the LSP over stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("starting LSP server on stdio")
	return s.serve(ctx, os.Stdin, os.Stdout)
}

// ServeTCP serves a single client connection on a TCP port
func (s *Server) ServeTCP(ctx context.Context, port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	defer listener.Close()
	s.logger.Info("starting LSP server", zap.Int("port", port))

	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to accept connection: %w", err)
	}
	defer conn.Close()
	return s.serve(ctx, conn, conn)
}

// serve handles the LSP protocol over the given reader/writer. Commands may
// call back into the client, so they run on their own goroutine and the
// loop keeps reading the client's responses.
func (s *Server) serve(ctx context.Context, reader io.Reader, writer io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.wg.Wait()
		s.stopWatcher()
	}()
	s.conn = NewConnection(reader, writer, s.logger.Named("conn"))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		message, err := s.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("connection closed")
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		if message.IsResponse() {
			s.deliver(message)
			continue
		}
		if blocking(message.Method) {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.respond(ctx, message)
			}()
			continue
		}
		if err := s.respond(ctx, message); errors.Is(err, errExit) {
			return nil
		}
	}
}

func blocking(method string) bool {
	return method == "workspace/executeCommand"
}

func (s *Server) respond(ctx context.Context, message *Message) error {
	response, err := s.handleMessage(ctx, message)
	if errors.Is(err, errExit) {
		return err
	}
	if err != nil {
		s.logger.Warn("error handling message", zap.String("method", message.Method), zap.Error(err))
		if message.ID == nil {
			return nil
		}
		response, _ = s.errorResponse(message.ID, CodeInternalError, err.Error(), nil)
	}
	if response != nil {
		if err := s.conn.WriteMessage(response); err != nil {
			s.logger.Error("failed to write response", zap.String("method", message.Method), zap.Error(err))
		}
	}
	return nil
}

// handleMessage processes an LSP message and returns a response
func (s *Server) handleMessage(ctx context.Context, message *Message) (*Message, error) {
	switch message.Method {
	case "initialize":
		return s.handleInitialize(message)
	case "initialized":
		return s.handleInitialized(ctx, message)
	case "shutdown":
		return s.handleShutdown(message)
	case "exit":
		return nil, errExit
	case "textDocument/didOpen":
		return s.handleTextDocumentDidOpen(ctx, message)
	case "textDocument/didChange":
		return s.handleTextDocumentDidChange(message)
	case "textDocument/didSave":
		return s.handleTextDocumentDidSave(ctx, message)
	case "textDocument/didClose":
		return s.handleTextDocumentDidClose(message)
	case "textDocument/codeAction":
		return s.handleTextDocumentCodeAction(message)
	case "workspace/executeCommand":
		return s.handleExecuteCommand(ctx, message)
	default:
		s.logger.Debug("unhandled method", zap.String("method", message.Method))
		if message.ID != nil {
			return s.errorResponse(message.ID, CodeMethodNotFound, "method not found: "+message.Method, nil)
		}
		return nil, nil
	}
}

func (s *Server) handleInitialize(message *Message) (*Message, error) {
	var params InitializeParams
	if err := json.Unmarshal(message.Params, &params); err != nil {
		return s.errorResponse(message.ID, CodeInvalidParams, "Invalid params", err.Error())
	}

	root := params.RootURI
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = params.WorkspaceFolders[0].URI
	}
	if root == "" {
		root = params.RootPath
	}

	s.mu.Lock()
	s.rootPath = uriToPath(root)
	if ws := params.Capabilities.Workspace; ws != nil {
		s.applyEdit = ws.ApplyEdit
		if we := ws.WorkspaceEdit; we != nil && we.DocumentChanges {
			for _, op := range we.ResourceOperations {
				if op == "create" {
					s.createFiles = true
				}
			}
		}
	}
	s.mu.Unlock()
	s.logger.Info("initialize", zap.String("root", s.rootPath), zap.Bool("applyEdit", s.applyEdit))

	return s.successResponse(message.ID, InitializeResult{
		Capabilities: s.capabilities,
		ServerInfo:   &ServerInfo{Name: Name, Version: Version},
	})
}

func (s *Server) handleInitialized(ctx context.Context, message *Message) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rootPath == "" {
		s.logger.Warn("no root path set, skipping workspace initialization")
		return nil, nil
	}

	cfg := s.opts.Config
	if cfg == nil {
		loaded, err := config.LoadConfigFromDir(s.rootPath)
		if err != nil {
			s.logger.Warn("invalid configuration, using defaults", zap.Error(err))
			loaded = config.Default()
		}
		cfg = loaded
	}
	ec, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	engine := refactor.CreateEngineWithConfig(ec, s.logger.Named("engine"))
	ws, err := engine.LoadWorkspace(s.rootPath)
	if err != nil {
		s.logger.Error("failed to load workspace", zap.String("root", s.rootPath), zap.Error(err))
		return nil, nil
	}
	s.engine = engine
	s.inspector = inspection.NewInspector(cfg.AutoSettings(), cfg.NamingPolicy(), s.logger.Named("inspection"))
	s.session = inspection.NewSession()
	s.initialized = true
	s.logger.Info("workspace loaded", zap.String("root", s.rootPath), zap.String("stats", ws.Stats()))

	if s.opts.Watch {
		if err := s.startWatcher(ctx, ec.Filter.SkipDir); err != nil {
			s.logger.Warn("file watching disabled", zap.Error(err))
		}
	}
	return nil, nil
}

// startWatcher keeps the workspace in sync with edits made outside the
// client and republishes diagnostics for open documents.
func (s *Server) startWatcher(ctx context.Context, skipDir func(string) bool) error {
	w, err := watch.NewWatcher(s.rootPath, s.opts.Debounce, skipDir, s.logger.Named("watch"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	s.stopWatch = func() {
		cancel()
		w.Close()
	}

	events := make(chan []watch.ChangeEvent)
	updater := watch.NewUpdater(s.engine, func(paths []string) {
		for _, p := range paths {
			if s.isOpen(p) {
				s.publishDiagnostics(p)
			}
		}
	}, s.logger.Named("watch"))
	go func() {
		if err := w.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("watcher stopped", zap.Error(err))
		}
	}()
	go updater.Run(ctx, events)
	return nil
}

func (s *Server) stopWatcher() {
	s.mu.Lock()
	stop := s.stopWatch
	s.stopWatch = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (s *Server) handleShutdown(message *Message) (*Message, error) {
	s.stopWatcher()
	s.mu.Lock()
	s.initialized = false
	s.mu.Unlock()
	return s.successResponse(message.ID, nil)
}

// ready returns the engine and inspector once the workspace is loaded
func (s *Server) ready() (*refactor.DefaultEngine, *inspection.Inspector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine, s.inspector, s.initialized
}

// call sends a request to the client and waits for its response
func (s *Server) call(ctx context.Context, method string, params, result interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	id := fmt.Sprintf("constprop-%d", s.nextID.Add(1))
	ch := make(chan *Message, 1)
	s.pmu.Lock()
	s.pending[id] = ch
	s.pmu.Unlock()
	defer func() {
		s.pmu.Lock()
		delete(s.pending, id)
		s.pmu.Unlock()
	}()

	if err := s.conn.WriteMessage(&Message{ID: id, Method: method, Params: raw}); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result == nil || resp.Result == nil {
			return nil
		}
		data, err := json.Marshal(resp.Result)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, result)
	}
}

func (s *Server) deliver(message *Message) {
	id := fmt.Sprint(message.ID)
	s.pmu.Lock()
	ch, ok := s.pending[id]
	s.pmu.Unlock()
	if !ok {
		s.logger.Warn("response to unknown request", zap.String("id", id))
		return
	}
	ch <- message
}

// notify sends a notification to the client
func (s *Server) notify(method string, params interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(&Message{Method: method, Params: raw})
}

func (s *Server) successResponse(id interface{}, result interface{}) (*Message, error) {
	return &Message{JSONRPC: "2.0", ID: id, Result: result}, nil
}

func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) (*Message, error) {
	return &Message{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &ResponseError{Code: code, Message: message, Data: data},
	}, nil
}
