package store

import "fmt"

const (
	ReasonIO           = "io"
	ReasonPartialWrite = "partial_write"
)

// DuplicateIdentityError 追加已存在的 identity 时返回；台账永不覆盖旧记录
type DuplicateIdentityError struct {
	Identity string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("duplicate identity %q", e.Identity)
}

// PersistenceError 台账读写失败；partial_write 表示文件内容不完整或已损坏
type PersistenceError struct {
	Path   string
	Reason string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
