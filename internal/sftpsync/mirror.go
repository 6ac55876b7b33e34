// SPDX-License-Identifier: MIT

// Package sftpsync mirrors the central whitelist dataset from an SFTP host
// into the local remote-data directory.
package sftpsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/ManuGH/censord/internal/log"
	"github.com/ManuGH/censord/internal/metrics"
)

// Config holds the SFTP connection parameters. Host may carry a port;
// the standard SSH port is assumed otherwise.
type Config struct {
	Host     string
	User     string
	Password string

	// RemoteRoot is the dataset directory on the server.
	RemoteRoot string
}

// remoteFS is the slice of the SFTP client the mirror needs. Tests swap in
// an in-memory implementation.
type remoteFS interface {
	Walk(root string) ([]remoteFile, error)
	Open(path string) (io.ReadCloser, error)
	Close() error
}

type remoteFile struct {
	Path    string // relative to the remote root
	Size    int64
	ModTime time.Time
}

// Mirrorer downloads the remote dataset tree. The zero value is unusable;
// use New.
type Mirrorer struct {
	cfg  Config
	dial func() (remoteFS, error)
}

func New(cfg Config) *Mirrorer {
	m := &Mirrorer{cfg: cfg}
	m.dial = m.connect
	return m
}

func (m *Mirrorer) connect() (remoteFS, error) {
	addr := m.cfg.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "22")
	}

	sshCfg := &ssh.ClientConfig{
		User:            m.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(m.cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106 -- host is operator-controlled
		Timeout:         15 * time.Second,
	}
	sshConn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, fmt.Errorf("ssh dial: %w", err)
	}
	client, err := sftp.NewClient(sshConn)
	if err != nil {
		_ = sshConn.Close()
		return nil, fmt.Errorf("sftp session: %w", err)
	}
	return &sftpFS{client: client, conn: sshConn, root: m.cfg.RemoteRoot}, nil
}

// ErrConnect marks failures to reach the SFTP host, as opposed to failures
// while transferring files.
var ErrConnect = errors.New("sftp connect failed")

// Mirror downloads every dataset file under the remote root into localRoot,
// preserving the directory layout. Files that vanished remotely are left in
// place; the server is additive and a partial listing must not wipe data.
// It returns the number of files written.
func (m *Mirrorer) Mirror(ctx context.Context, localRoot string) (int, error) {
	remote, err := m.dial()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	defer func() { _ = remote.Close() }()

	files, err := remote.Walk(m.cfg.RemoteRoot)
	if err != nil {
		return 0, fmt.Errorf("list remote files: %w", err)
	}

	logger := log.WithComponentFromContext(ctx, "sftpsync")
	downloaded := 0
	for _, rf := range files {
		if err := ctx.Err(); err != nil {
			return downloaded, err
		}
		if !strings.HasSuffix(rf.Path, ".json") {
			continue
		}

		local := filepath.Join(localRoot, filepath.FromSlash(rf.Path))
		if upToDate(local, rf) {
			continue
		}

		if err := m.download(remote, rf, local); err != nil {
			return downloaded, fmt.Errorf("download %s: %w", rf.Path, err)
		}
		downloaded++
		logger.Debug().Str(log.FieldPath, rf.Path).Msg("file mirrored")
	}

	metrics.RecordSyncFiles(downloaded)
	logger.Info().Int("files", downloaded).Int("remote_total", len(files)).Msg("mirror complete")
	return downloaded, nil
}

// upToDate compares size and modification time so unchanged files are not
// re-downloaded every minute.
func upToDate(local string, rf remoteFile) bool {
	info, err := os.Stat(local)
	if err != nil {
		return false
	}
	return info.Size() == rf.Size && !info.ModTime().Before(rf.ModTime)
}

func (m *Mirrorer) download(remote remoteFS, rf remoteFile, local string) error {
	src, err := remote.Open(path.Join(m.cfg.RemoteRoot, rf.Path))
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	buf, err := io.ReadAll(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o750); err != nil {
		return err
	}
	return renameio.WriteFile(local, buf, 0o600)
}

// sftpFS adapts the sftp client to remoteFS.
type sftpFS struct {
	client *sftp.Client
	conn   *ssh.Client
	root   string
}

func (s *sftpFS) Walk(root string) ([]remoteFile, error) {
	var files []remoteFile
	walker := s.client.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return nil, err
		}
		info := walker.Stat()
		if info == nil || info.IsDir() {
			continue
		}
		rel, err := relPath(root, walker.Path())
		if err != nil {
			return nil, err
		}
		files = append(files, remoteFile{Path: rel, Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}

func relPath(root, full string) (string, error) {
	cleanRoot := path.Clean(root)
	cleanFull := path.Clean(full)
	if !strings.HasPrefix(cleanFull, cleanRoot+"/") {
		return "", fmt.Errorf("remote path %q outside root %q", full, root)
	}
	return strings.TrimPrefix(cleanFull, cleanRoot+"/"), nil
}

func (s *sftpFS) Open(p string) (io.ReadCloser, error) {
	f, err := s.client.Open(p)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *sftpFS) Close() error {
	err := s.client.Close()
	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
