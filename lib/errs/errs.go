package errs

import "errors"

var ErrNotFound = errors.New("not found")

var ErrAlreadyExists = errors.New("already exists")

var ErrInternal = errors.New("internal error")

var ErrInvalidTheme = errors.New("invalid theme")

var ErrInvalidLocale = errors.New("invalid locale")

var ErrInvalidAsset = errors.New("invalid asset")

var ErrUnknownDriver = errors.New("unknown storage driver")
