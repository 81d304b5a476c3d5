// Package publish delivers batch files and label artifacts to the
// downstream SFTP file-drop.
package publish

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"

	"github.com/Juan7731/bol.com/config"
)

// UploadResult reports what happened to one file. Verified is true only
// when the remote size was confirmed to match; an upload can succeed
// without verification and callers must be able to tell the difference.
type UploadResult struct {
	LocalPath  string
	RemotePath string
	Uploaded   bool
	Verified   bool
	Err        error
}

// Publisher uploads files over SFTP.
type Publisher struct {
	cfg config.SFTPConfig
}

// NewPublisher creates a publisher for the configured file-drop.
func NewPublisher(cfg config.SFTPConfig) *Publisher {
	return &Publisher{cfg: cfg}
}

// PublishBatches uploads batch files into the remote batch directory.
func (p *Publisher) PublishBatches(paths []string) ([]UploadResult, error) {
	return p.publish(paths, p.cfg.RemoteBatchDir)
}

// PublishLabels uploads label artifacts into the remote label directory.
func (p *Publisher) PublishLabels(paths []string) ([]UploadResult, error) {
	return p.publish(paths, p.cfg.RemoteLabelDir)
}

func (p *Publisher) publish(paths []string, remoteDir string) ([]UploadResult, error) {
	if len(paths) == 0 {
		log.Info().Msg("No files to upload")
		return nil, nil
	}

	client, conn, err := p.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	defer client.Close()

	if err := client.MkdirAll(remoteDir); err != nil {
		return nil, errors.Wrapf(err, "failed to create remote directory %s", remoteDir)
	}

	results := make([]UploadResult, 0, len(paths))
	uploaded, failed := 0, 0
	for _, localPath := range paths {
		result := p.uploadOne(client, localPath, remoteDir)
		if result.Uploaded {
			uploaded++
		} else {
			failed++
		}
		results = append(results, result)
	}

	log.Info().
		Int("uploaded", uploaded).
		Int("failed", failed).
		Int("total", len(paths)).
		Msg("SFTP upload complete")
	return results, nil
}

func (p *Publisher) uploadOne(client *sftp.Client, localPath, remoteDir string) UploadResult {
	remotePath := path.Join(remoteDir, filepath.Base(localPath))
	result := UploadResult{LocalPath: localPath, RemotePath: remotePath}

	src, err := os.Open(localPath)
	if err != nil {
		result.Err = errors.Wrap(err, "failed to open local file")
		log.Error().Err(result.Err).Str("file", localPath).Msg("Upload failed")
		return result
	}
	defer src.Close()

	dst, err := client.Create(remotePath)
	if err != nil {
		result.Err = errors.Wrap(err, "failed to create remote file")
		log.Error().Err(result.Err).Str("file", remotePath).Msg("Upload failed")
		return result
	}

	written, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		result.Err = errors.Wrap(err, "failed to write remote file")
		log.Error().Err(result.Err).Str("file", remotePath).Msg("Upload failed")
		return result
	}
	result.Uploaded = true

	// Verification is best-effort but its outcome is reported
	// explicitly rather than assumed.
	stat, err := client.Stat(remotePath)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("file", remotePath).Msg("Could not verify upload")
	case stat.Size() != written:
		log.Warn().
			Str("file", remotePath).
			Int64("local", written).
			Int64("remote", stat.Size()).
			Msg("Upload size mismatch")
	default:
		result.Verified = true
		log.Info().Str("file", filepath.Base(remotePath)).Int64("bytes", written).Msg("Uploaded file")
	}
	return result
}

func (p *Publisher) connect() (*sftp.Client, *ssh.Client, error) {
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	sshConfig := &ssh.ClientConfig{
		User:            p.cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(p.cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}

	conn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to connect to SFTP server %s", addr)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, nil, errors.Wrap(err, "failed to start SFTP session")
	}

	log.Info().Str("host", addr).Msg("Connected to SFTP server")
	return client, conn, nil
}
