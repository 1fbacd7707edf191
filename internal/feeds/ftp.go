package feeds

import (
	"context"
	"net"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/bookbridge/shelfsync/pkg/errors"
)

// dialTimeout bounds the FTP control-connection handshake.
const dialTimeout = 15 * time.Second

// FTPConfig holds the feed server credentials.
type FTPConfig struct {
	Host     string // host or host:port; port 21 assumed when absent
	User     string
	Password string
	Path     string // remote directory holding the feeds, "/" by default
}

// FTPSource serves feed files from an FTP directory.
type FTPSource struct {
	conn *ftp.ServerConn
}

// DialFTP connects and logs in to the feed server. Any failure here is
// fatal-setup: the run aborts before any mutation.
func DialFTP(ctx context.Context, cfg FTPConfig) (*FTPSource, error) {
	addr := cfg.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "21")
	}

	conn, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(dialTimeout),
	)
	if err != nil {
		return nil, errors.WrapSource("feed server", err)
	}
	if err := conn.Login(cfg.User, cfg.Password); err != nil {
		_ = conn.Quit()
		return nil, errors.WrapSource("feed server login", err)
	}
	if cfg.Path != "" && cfg.Path != "/" {
		if err := conn.ChangeDir(cfg.Path); err != nil {
			_ = conn.Quit()
			return nil, errors.WrapSource("feed directory "+cfg.Path, err)
		}
	}
	return &FTPSource{conn: conn}, nil
}

// List returns the feed file names in the working directory.
func (s *FTPSource) List(_ context.Context) ([]string, error) {
	entries, err := s.conn.List("")
	if err != nil {
		return nil, errors.WrapSource("feed listing", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		if isFeedName(e.Name) {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

// Fetch downloads and parses one feed file.
func (s *FTPSource) Fetch(_ context.Context, name string) ([]Record, error) {
	resp, err := s.conn.Retr(name)
	if err != nil {
		return nil, errors.WrapSource("feed "+name, err)
	}
	defer resp.Close()
	return ParseCSV(name, resp)
}

// Close quits the FTP session.
func (s *FTPSource) Close() error {
	return s.conn.Quit()
}
