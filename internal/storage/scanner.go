package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dutchcoders/go-clamd"
)

// ClamdScanner 通过 clamd 的 INSTREAM 命令扫描上传内容。
type ClamdScanner struct {
	addr string
}

// NewClamdScanner 构造扫描器，addr 形如 tcp://clamav:3310。
func NewClamdScanner(addr string) *ClamdScanner {
	return &ClamdScanner{addr: strings.TrimSpace(addr)}
}

// Scan 检测到病毒时返回 ErrInfected，clamd 不可用时返回其它错误。
func (s *ClamdScanner) Scan(ctx context.Context, data []byte) error {
	client := clamd.NewClamd(s.addr)

	abort := make(chan bool)
	defer close(abort)

	results, err := client.ScanStream(bytes.NewReader(data), abort)
	if err != nil {
		return fmt.Errorf("clamd scan: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-results:
			if !ok {
				return nil
			}
			switch result.Status {
			case clamd.RES_OK:
			case clamd.RES_FOUND:
				return fmt.Errorf("%w: %s", ErrInfected, result.Description)
			default:
				return fmt.Errorf("clamd scan status %s: %s", result.Status, result.Description)
			}
		}
	}
}
