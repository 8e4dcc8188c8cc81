package repository

import "errors"

var ErrNotFound = errors.New("запись не найдена")
var ErrClosed = errors.New("хранилище закрыто")
