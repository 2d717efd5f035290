package offline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/sweetpotato0/gitwit/llm"
)

// defaultRunnerBinary is a llama-cli compatible executable expected in
// PATH when no explicit runner path is configured.
const defaultRunnerBinary = "llama-cli"

// execRunner drives the local generation binary. Loading model weights
// is the binary's concern; the backend only hands it the materialized
// artifact path.
type execRunner struct {
	path string
}

func (r *execRunner) Generate(ctx context.Context, modelPath, prompt string, opts llm.Options) (string, error) {
	binary := r.path
	if binary == "" {
		found, err := exec.LookPath(defaultRunnerBinary)
		if err != nil {
			return "", fmt.Errorf("local runner %q not found in PATH", defaultRunnerBinary)
		}
		binary = found
	}

	args := []string{
		"-m", modelPath,
		"-p", prompt,
		"-n", strconv.FormatInt(opts.MaxTokens, 10),
		"--simple-io",
	}
	if opts.Temperature > 0 {
		args = append(args, "--temp", strconv.FormatFloat(opts.Temperature, 'f', -1, 64))
	}
	if opts.TopP > 0 {
		args = append(args, "--top-p", strconv.FormatFloat(opts.TopP, 'f', -1, 64))
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("runner exited: %v: %s", err, exitErr.Stderr)
		}
		return "", fmt.Errorf("runner exited: %v", err)
	}
	return string(out), nil
}

// httpDownloader streams the artifact to a temp file and renames it
// into place so an interrupted download never leaves a partial model.
type httpDownloader struct {
	client *http.Client
}

func (d *httpDownloader) Download(ctx context.Context, url, dest string) error {
	client := d.client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "model-*.partial")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
