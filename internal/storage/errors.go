package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ErrInfected 表示上传内容未通过病毒扫描。
var ErrInfected = errors.New("malicious file detected")

// IsNoSuchKey 判断错误是否表示对象不存在（S3/MinIO: NoSuchKey/NotFound）。
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch strings.ToLower(strings.TrimSpace(minioErr.Code)) {
		case "nosuchkey", "notfound":
			return true
		}
	}

	// 部分网关只返回错误字符串。
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "nosuchkey") ||
		strings.Contains(lower, "specified key does not exist")
}
