// Package session 保存一次编辑会话中的照片、说明文字与封面文字。
//
// 照片与说明文字存放在同一个有序条目切片中，位置关联由结构保证，
// 增删与调整顺序都不会让二者错位。导出期间会话处于忙碌状态，拒绝任何修改。
package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ByLCY/keepsake/layout"
)

var (
	// ErrBusy 表示会话正在导出，修改被拒绝。
	ErrBusy = errors.New("正在生成 PDF，请稍候再修改")
	// ErrIndexOutOfRange 表示照片序号越界。
	ErrIndexOutOfRange = errors.New("照片序号越界")
)

// Entry 是一张照片及其说明文字。
type Entry struct {
	Photo   *Photo
	Caption string
}

// Session 是单个用户的编辑状态，可并发访问。
type Session struct {
	id string

	mu        sync.Mutex
	meta      layout.BookMeta
	entries   []Entry
	exporting bool
	touched   time.Time
	now       func() time.Time
}

// New 创建空会话。
func New(id string) *Session {
	s := &Session{id: id, now: time.Now}
	s.touched = s.now()
	return s
}

func (s *Session) ID() string { return s.id }

// mutate 在持锁且非忙碌时执行 fn。
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting {
		return ErrBusy
	}
	if err := fn(); err != nil {
		return err
	}
	s.touched = s.now()
	return nil
}

func (s *Session) checkIndex(i int) error {
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("%w: %d（共 %d 张）", ErrIndexOutOfRange, i, len(s.entries))
	}
	return nil
}

// Add 在末尾追加照片，每张照片对应一条空说明。
func (s *Session) Add(photos ...*Photo) error {
	return s.mutate(func() error {
		for _, p := range photos {
			if p == nil {
				continue
			}
			s.entries = append(s.entries, Entry{Photo: p})
		}
		return nil
	})
}

// Replace 用新的照片列表替换全部条目，说明文字全部清空。
func (s *Session) Replace(photos ...*Photo) error {
	return s.mutate(func() error {
		entries := make([]Entry, 0, len(photos))
		for _, p := range photos {
			if p != nil {
				entries = append(entries, Entry{Photo: p})
			}
		}
		s.entries = entries
		return nil
	})
}

// Remove 删除第 i 张照片及其说明。
func (s *Session) Remove(i int) error {
	return s.mutate(func() error {
		if err := s.checkIndex(i); err != nil {
			return err
		}
		s.entries = slices.Delete(s.entries, i, i+1)
		return nil
	})
}

// Move 把第 from 张照片（连同说明）移动到位置 to。
func (s *Session) Move(from, to int) error {
	return s.mutate(func() error {
		if err := s.checkIndex(from); err != nil {
			return err
		}
		if err := s.checkIndex(to); err != nil {
			return err
		}
		if from == to {
			return nil
		}
		e := s.entries[from]
		s.entries = slices.Insert(slices.Delete(s.entries, from, from+1), to, e)
		return nil
	})
}

// SetCaption 修改第 i 张照片的说明文字。
func (s *Session) SetCaption(i int, text string) error {
	return s.mutate(func() error {
		if err := s.checkIndex(i); err != nil {
			return err
		}
		s.entries[i].Caption = text
		return nil
	})
}

// SetMeta 修改封面文字。
func (s *Session) SetMeta(m layout.BookMeta) error {
	return s.mutate(func() error {
		s.meta = m
		return nil
	})
}

// Meta 返回封面文字。
func (s *Session) Meta() layout.BookMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Len 返回照片数量。
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries 返回条目的副本。
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Entry 返回第 i 个条目。
func (s *Session) Entry(i int) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(i); err != nil {
		return Entry{}, err
	}
	return s.entries[i], nil
}

// Busy 报告是否正在导出。
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exporting
}

// BeginExport 进入忙碌状态并返回当前内容的快照；调用方必须调用返回的 done。
// 会话为空时返回 layout.ErrNoPhotos，已在导出时返回 ErrBusy。
func (s *Session) BeginExport() (layout.Book, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting {
		return layout.Book{}, nil, ErrBusy
	}
	if len(s.entries) == 0 {
		return layout.Book{}, nil, layout.ErrNoPhotos
	}
	s.exporting = true
	s.touched = s.now()

	book := s.snapshotLocked()

	var once sync.Once
	done := func() {
		once.Do(func() {
			s.mu.Lock()
			s.exporting = false
			s.touched = s.now()
			s.mu.Unlock()
		})
	}
	return book, done, nil
}

// Snapshot 返回当前内容的副本，供预览或调试使用。
func (s *Session) Snapshot() layout.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() layout.Book {
	book := layout.Book{Meta: s.meta, Photos: make([]layout.BookPhoto, len(s.entries))}
	for i, e := range s.entries {
		book.Photos[i] = layout.BookPhoto{
			Name:    e.Photo.Name,
			Image:   e.Photo.Image,
			Width:   e.Photo.Width,
			Height:  e.Photo.Height,
			Caption: e.Caption,
			Err:     e.Photo.Err,
		}
	}
	return book
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched, s.exporting
}
