package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
)

/**
 *	从服务器获取一个文件
 * @param {context.Context} ctx - Cancels the transfer
 * @param {*http.Client} client - HTTP client, nil uses http.DefaultClient
 * @param {string} urlStr - File URL
 * @param {map[string]string} params - Query parameters
 * @param {string} savePath - Destination, overwritten if it exists
 */
func GetFile(ctx context.Context, client *http.Client, urlStr string, params map[string]string, savePath string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fmt.Errorf("GetFile('%s') failed: %w", urlStr, err)
	}
	if len(params) > 0 {
		vals := make(url.Values)
		for k, v := range params {
			vals.Set(k, v)
		}
		req.URL.RawQuery = vals.Encode()
	}

	rsp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GetFile('%s') failed: %w", urlStr, err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		rspBody, _ := io.ReadAll(io.LimitReader(rsp.Body, 4096))
		return fmt.Errorf("GetFile('%s') code: %d, error: %s", urlStr, rsp.StatusCode, string(rspBody))
	}

	if err = os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return fmt.Errorf("GetFile('%s'): MkdirAll('%s') error: %w", urlStr, savePath, err)
	}
	out, err := os.Create(savePath)
	if err != nil {
		return fmt.Errorf("GetFile('%s'): create('%s') error: %w", urlStr, savePath, err)
	}
	defer out.Close()

	if _, err = io.Copy(out, rsp.Body); err != nil {
		return fmt.Errorf("GetFile('%s'): copy error: %w", urlStr, err)
	}
	return out.Close()
}

/**
 * Write an executable atomically
 * @param {io.Reader} src - Executable content
 * @param {string} target - Final path
 * @returns {error} Error if writing, chmod or rename fails
 * @description
 * - Writes into a temporary file next to the target, then renames over it
 * - Sets mode 0755 except on Windows
 * - The temporary file is removed on failure
 */
func SaveExecutable(src io.Reader, target string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpName, 0755); err != nil {
			return err
		}
	} else if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpName, target)
}
