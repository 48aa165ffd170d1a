package command

// root.go builds the command tree and the global flags shared by every command.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vcampus/internal/campus"
	"vcampus/internal/gateway"
	"vcampus/internal/logging"
	"vcampus/internal/protocol/codec"
)

// Settings are resolved from flags, VCAMPUS_* env vars and the config file,
// in that order of precedence.
type Settings struct {
	Server         string        `mapstructure:"server"`
	Codec          string        `mapstructure:"codec"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect-timeout"`
	LogLevel       string        `mapstructure:"log-level"`
}

type app struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCmd returns a fresh command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "vcampus",
		Short: "vcampus - virtual campus command line client",
		Long: `vcampus talks to a campus server over TCP or WebSocket. With it you can:
- Manage students, teachers and passwords
- Search documents and borrow or return library books
- Buy from the campus store and select courses
- Watch server notices in real time

Use "vcampus command --help" to see the options of each command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default $HOME/.vcampus/config.yaml)")
	flags.String("server", "localhost:8081", "server address: host:port, tcp://host:port or ws://host:port/ws")
	flags.String("codec", codec.JSONName, "wire codec: "+strings.Join(codec.Names(), ", "))
	flags.Duration("timeout", gateway.DefaultRequestTimeout, "request timeout")
	flags.Duration("connect-timeout", 5*time.Second, "connect timeout")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	for _, name := range []string{"server", "codec", "timeout", "connect-timeout", "log-level"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		newPingCmd(a),
		newStudentCmd(a),
		newTeacherCmd(a),
		newPasswordCmd(a),
		newDocumentCmd(a),
		newBookCmd(a),
		newStoreCmd(a),
		newCourseCmd(a),
		newMonitorCmd(a),
		newNoticeCmd(a),
	)
	return rootCmd
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) loadConfig() error {
	a.v.SetEnvPrefix("VCAMPUS")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(filepath.Join(home, ".vcampus"))
	}

	// a missing default config file is fine, flags and env still apply
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func (a *app) settings() (Settings, error) {
	var s Settings
	if err := a.v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decode config: %w", err)
	}
	if strings.TrimSpace(s.Server) == "" {
		return s, errors.New("server address is required")
	}
	if s.Timeout <= 0 {
		return s, errors.New("timeout must be positive")
	}
	return s, nil
}

// session is one connected gateway plus the typed client over it.
type session struct {
	conn   *gateway.Connection
	client *campus.Client
}

func (a *app) connect(cmd *cobra.Command) (*session, error) {
	s, err := a.settings()
	if err != nil {
		return nil, err
	}
	wire, err := codec.New(s.Codec)
	if err != nil {
		return nil, err
	}
	logger, _ := logging.Setup(logging.Options{
		Level:  s.LogLevel,
		Format: "text",
		Output: cmd.ErrOrStderr(),
	})

	conn := gateway.New(gateway.Options{
		Codec:          wire,
		Logger:         logger,
		ConnectTimeout: s.ConnectTimeout,
		RequestTimeout: s.Timeout,
	})
	if err := conn.Connect(cmd.Context(), s.Server); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cannot reach %s: %w", s.Server, err)
	}
	return &session{conn: conn, client: campus.NewClient(conn)}, nil
}

// run connects, hands the typed client to fn and closes the connection.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, c *campus.Client, out io.Writer) error) error {
	sess, err := a.connect(cmd)
	if err != nil {
		return err
	}
	defer sess.conn.Close()
	return fn(cmd.Context(), sess.client, cmd.OutOrStdout())
}
