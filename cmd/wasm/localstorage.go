//go:build js && wasm

package main

import (
	"errors"
	"fmt"
	"syscall/js"

	"github.com/kittclouds/chatsession/internal/store"
)

// LocalStorage persists slices in window.localStorage under their key names,
// so data written by earlier browser builds is picked up unchanged.
type LocalStorage struct {
	ls js.Value
}

var _ store.SliceStore = (*LocalStorage)(nil)

// NewLocalStorage binds to the global localStorage object.
func NewLocalStorage() (*LocalStorage, error) {
	ls := js.Global().Get("localStorage")
	if ls.IsUndefined() || ls.IsNull() {
		return nil, errors.New("localStorage is not available")
	}
	return &LocalStorage{ls: ls}, nil
}

func (l *LocalStorage) LoadSlice(key string) (data []byte, ok bool, err error) {
	defer recoverJS(&err)

	v := l.ls.Call("getItem", key)
	if v.IsNull() || v.IsUndefined() {
		return nil, false, nil
	}
	return []byte(v.String()), true, nil
}

// SaveSlice writes one slice. Quota errors surface as Go errors.
func (l *LocalStorage) SaveSlice(key string, value []byte) (err error) {
	defer recoverJS(&err)

	l.ls.Call("setItem", key, string(value))
	return nil
}

func (l *LocalStorage) Close() error { return nil }

// recoverJS turns a thrown JS exception into an error.
func recoverJS(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if jsErr, ok := r.(js.Error); ok {
		*err = fmt.Errorf("localStorage: %s", jsErr.Error())
		return
	}
	*err = fmt.Errorf("localStorage: %v", r)
}
