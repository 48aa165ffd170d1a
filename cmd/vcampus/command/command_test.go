package command

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcampus/internal/campus"
	"vcampus/internal/logging"
	"vcampus/internal/server"
	"vcampus/internal/store"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// syncBuffer is written from the event loop and the command goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startServer(t *testing.T) *server.TCPServer {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	repos := store.NewMemory()
	require.NoError(t, store.Seed(context.Background(), repos, time.Now()))
	router := server.NewRouter(logging.Discard())
	server.NewCampus(repos).Register(router)

	srv := server.NewServer(server.Options{Addr: "127.0.0.1:0", Logger: logging.Discard()}, router)
	require.NoError(t, srv.Listen())
	go srv.Serve()
	t.Cleanup(srv.Stop)
	return srv
}

func execute(t *testing.T, srv *server.TCPServer, args ...string) (string, error) {
	t.Helper()
	out := &syncBuffer{}
	root := NewRootCmd()
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(append(args, "--server", srv.ListenAddr(), "--timeout", "3s"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPing(t *testing.T) {
	srv := startServer(t)
	out, err := execute(t, srv, "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "PONG")
}

func TestStudentCommands(t *testing.T) {
	srv := startServer(t)

	out, err := execute(t, srv, "student", "add", "--id", "2023001", "--name", "Han Meimei", "--major", "Physics", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Added student 2023001")

	out, err = execute(t, srv, "student", "update", "2023001", "--major", "Mathematics")
	require.NoError(t, err)
	assert.Contains(t, out, "Mathematics")
	assert.Contains(t, out, "Han Meimei", "omitted fields are kept")

	out, err = execute(t, srv, "student", "list", "--keyword", "han")
	require.NoError(t, err)
	assert.Contains(t, out, "students (1)")

	_, err = execute(t, srv, "student", "add", "--id", "2023001", "--name", "Someone Else")
	var rejected *campus.RejectedError
	require.ErrorAs(t, err, &rejected)

	_, err = execute(t, srv, "student", "delete", "2023001")
	require.NoError(t, err)

	_, err = execute(t, srv, "student", "get", "2023001")
	require.ErrorAs(t, err, &rejected)

	out, err = execute(t, srv, "student", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No students found")
}

func TestLibraryStoreAndCourseCommands(t *testing.T) {
	srv := startServer(t)
	_, err := execute(t, srv, "student", "add", "--id", "S1", "--name", "Li Lei")
	require.NoError(t, err)
	_, err = execute(t, srv, "student", "add", "--id", "S2", "--name", "Wei Hua")
	require.NoError(t, err)

	out, err := execute(t, srv, "book", "borrow", "978-7-302-33064-6", "--student", "S1")
	require.NoError(t, err)
	assert.Contains(t, out, "Borrowed 978-7-302-33064-6")

	// the only copy is out
	_, err = execute(t, srv, "book", "borrow", "978-7-302-33064-6", "--student", "S2")
	var rejected *campus.RejectedError
	require.ErrorAs(t, err, &rejected)

	out, err = execute(t, srv, "book", "return", "978-7-302-33064-6", "--student", "S1")
	require.NoError(t, err)
	assert.Contains(t, out, "Returned")

	out, err = execute(t, srv, "store", "buy", "P001", "--student", "S1", "--quantity", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "total 9.00")

	out, err = execute(t, srv, "course", "select", "CS101", "--student", "S1")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected CS101")

	out, err = execute(t, srv, "course", "drop", "CS101", "--student", "S1")
	require.NoError(t, err)
	assert.Contains(t, out, "Dropped CS101")

	out, err = execute(t, srv, "document", "upload", "--title", "Lab Manual", "--category", "physics")
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded \"Lab Manual\"")

	out, err = execute(t, srv, "document", "search", "lab")
	require.NoError(t, err)
	assert.Contains(t, out, "Lab Manual")
}

func TestPasswordResetValidatesBeforeDialing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"password", "reset", "--user", "S1", "--new", "abc", "--server", "127.0.0.1:1"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least")
}

func TestUnreachableServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"ping", "--server", "127.0.0.1:1", "--connect-timeout", "1s"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot reach")
}

func TestMonitorPrintsNotices(t *testing.T) {
	srv := startServer(t)

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := execute(t, srv, "monitor", "--duration", "2s")
		done <- result{out, err}
	}()

	require.Eventually(t, func() bool { return srv.Manager.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	// the listener is registered right after connecting; give it a moment
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, srv.Manager.BroadcastNotice("exam moved to room 101"))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Contains(t, r.out, "exam moved to room 101")
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not return")
	}
}

func TestSettingsPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("codec: cbor\ntimeout: 3s\nserver: file:1\n"), 0o600))
	t.Setenv("VCAMPUS_SERVER", "ws://campus:8080/ws")

	a := &app{v: viper.New(), cfgFile: path}
	a.v.SetDefault("server", "localhost:8081")
	a.v.SetDefault("codec", "json")
	a.v.SetDefault("timeout", "10s")
	require.NoError(t, a.loadConfig())

	s, err := a.settings()
	require.NoError(t, err)
	assert.Equal(t, "ws://campus:8080/ws", s.Server)
	assert.Equal(t, "cbor", s.Codec)
	assert.Equal(t, 3*time.Second, s.Timeout)
}

func TestMissingConfigFileIsAnError(t *testing.T) {
	a := &app{v: viper.New(), cfgFile: filepath.Join(t.TempDir(), "absent.yaml")}
	assert.Error(t, a.loadConfig())
}

func TestNoticeSendSignsToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	gin.SetMode(gin.TestMode)
	const secret = "0123456789abcdef0123456789abcdef"
	srv := server.NewServer(server.Options{Addr: "127.0.0.1:0", AdminSecret: secret, Logger: logging.Discard()}, server.NewRouter(logging.Discard()))
	admin := httptest.NewServer(server.NewHTTPHandler(srv))
	defer admin.Close()

	run := func(args ...string) (string, error) {
		out := &syncBuffer{}
		root := NewRootCmd()
		root.SetOut(out)
		root.SetErr(out)
		root.SetArgs(append([]string{"notice", "send", "library closes at 6pm", "--admin", admin.URL}, args...))
		err := root.Execute()
		return out.String(), err
	}

	_, err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = run("--secret", "wrong-secret-wrong-secret-wrong-s")
	require.Error(t, err)

	t.Setenv("VCAMPUS_JWT_SECRET", secret)
	out, err := run()
	require.NoError(t, err)
	assert.Contains(t, out, "delivered to 0 client(s)")
}
