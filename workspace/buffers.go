package workspace

import (
	"context"
	"fmt"

	"github.com/lexandro/workspace-mcp/buffer"
	"github.com/lexandro/workspace-mcp/preview"
	"github.com/lexandro/workspace-mcp/remote"
)

// Buffer returns a copy of the open buffer at path.
func (s *Store) Buffer(path string) (buffer.OpenFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffers.Get(path)
}

// Buffers returns copies of all open buffers in insertion order.
func (s *Store) Buffers() []buffer.OpenFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffers.Entries()
}

// Open activates the buffer at path, fetching its content first when it is
// not open yet. On failure no buffer is created.
func (s *Store) Open(ctx context.Context, path string) error {
	s.mu.Lock()
	if s.buffers.Has(path) {
		s.active = path
		s.commitLocked()
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	content, err := remote.CallResult(ctx, "read_file", path, func(ctx context.Context) (string, error) {
		return s.fs.ReadFile(ctx, path)
	})
	if err != nil {
		return s.fail("open file", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A concurrent Open may have won; its buffer stands.
	if !s.buffers.Has(path) {
		s.buffers.Add(buffer.New(path, content, s.detect(path)))
		s.logger.Info("file opened", "path", path, "bytes", len(content))
	}
	s.active = path
	s.commitLocked()
	return nil
}

// OpenVirtual opens content that has no backing file, such as a diff or a
// preview, and activates it. Reopening a virtual path refreshes its
// content. A path already open as a real file is refused so its edits are
// never overwritten.
func (s *Store) OpenVirtual(path, content, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.buffers.Get(path); ok {
		if !existing.Virtual {
			return fmt.Errorf("open virtual %s: %w", path, ErrPathOpen)
		}
		s.buffers.Update(path, func(f *buffer.OpenFile) {
			f.Content = content
			f.IsDirty = false
			f.SavedHash = buffer.Fingerprint(content)
		})
	} else {
		f := buffer.New(path, content, language)
		f.Virtual = true
		s.buffers.Add(f)
	}
	s.active = path
	s.commitLocked()
	return nil
}

// UpdateContent replaces a buffer's content and dirty flag. Content
// declared clean becomes the saved content. It reports false when path is
// not open.
func (s *Store) UpdateContent(path, content string, isDirty bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.buffers.Update(path, func(f *buffer.OpenFile) {
		f.Content = content
		f.IsDirty = isDirty
		if !isDirty {
			f.SavedHash = buffer.Fingerprint(content)
		}
	})
	if ok {
		s.commitLocked()
	}
	return ok
}

// EditContent replaces a buffer's content and derives its dirty flag by
// comparing the new content with the last saved content. It returns the
// resulting dirty flag.
func (s *Store) EditContent(path, content string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dirty bool
	ok := s.buffers.Update(path, func(f *buffer.OpenFile) {
		f.Content = content
		f.IsDirty = buffer.Fingerprint(content) != f.SavedHash
		dirty = f.IsDirty
	})
	if !ok {
		return false, fmt.Errorf("edit %s: %w", path, ErrNotOpen)
	}
	s.commitLocked()
	return dirty, nil
}

// MarkDirty flags a buffer as modified. It reports whether anything
// changed; an already dirty or unknown buffer produces no transition.
func (s *Store) MarkDirty(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.buffers.Get(path)
	if !ok || f.IsDirty {
		return false
	}
	s.buffers.Update(path, func(f *buffer.OpenFile) { f.IsDirty = true })
	s.commitLocked()
	return true
}

// SetCursor records the caret position of an open buffer.
func (s *Store) SetCursor(path string, line, column int) error {
	if line < 0 || column < 0 {
		return fmt.Errorf("cursor %d:%d out of range", line, column)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.buffers.Update(path, func(f *buffer.OpenFile) {
		f.Cursor = buffer.Cursor{Line: line, Column: column}
	})
	if !ok {
		return fmt.Errorf("set cursor %s: %w", path, ErrNotOpen)
	}
	s.commitLocked()
	return nil
}

// SetActiveFile activates an open buffer. An empty path clears the
// selection.
func (s *Store) SetActiveFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path != "" && !s.buffers.Has(path) {
		return fmt.Errorf("activate %s: %w", path, ErrNotOpen)
	}
	s.active = path
	s.commitLocked()
	return nil
}

// Save writes a buffer's content to its file. The dirty flag is cleared
// only when the write succeeds and the buffer was not edited while the
// write was in flight; on failure content and flag are left untouched.
func (s *Store) Save(ctx context.Context, path string) error {
	f, ok := s.Buffer(path)
	if !ok {
		return fmt.Errorf("save %s: %w", path, ErrNotOpen)
	}
	if f.Virtual {
		return fmt.Errorf("save %s: %w", path, ErrVirtual)
	}

	content := f.Content
	err := remote.Call(ctx, "write_file", path, func(ctx context.Context) error {
		return s.fs.WriteFile(ctx, path, content)
	})
	if err != nil {
		return s.fail("save file", err)
	}

	saved := buffer.Fingerprint(content)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers.Update(path, func(f *buffer.OpenFile) {
		f.SavedHash = saved
		f.IsDirty = buffer.Fingerprint(f.Content) != saved
	})
	s.commitLocked()
	s.logger.Info("file saved", "path", path, "bytes", len(content))
	return nil
}

// Close removes a buffer. When it was active, the earliest-opened
// remaining buffer becomes active, or none. It reports false when path
// was not open.
func (s *Store) Close(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.buffers.Remove(path) {
		return false
	}
	if s.active == path {
		s.active = s.buffers.First()
	}
	s.commitLocked()
	return true
}

// OpenPreview renders a Markdown file to HTML in a virtual preview buffer.
// The open buffer's content is used when there is one, so unsaved edits
// show up; otherwise the file is read.
func (s *Store) OpenPreview(ctx context.Context, path string) (string, error) {
	if !preview.Supported(s.detect(path)) {
		return "", fmt.Errorf("preview %s: only markdown files can be previewed", path)
	}
	content, err := s.contentOf(ctx, path)
	if err != nil {
		return "", s.fail("preview", err)
	}
	html, err := preview.Render(content)
	if err != nil {
		return "", s.fail("preview", err)
	}
	target := preview.Path(path)
	if err := s.OpenVirtual(target, html, preview.Language); err != nil {
		return "", err
	}
	return target, nil
}

func (s *Store) contentOf(ctx context.Context, path string) (string, error) {
	if f, ok := s.Buffer(path); ok {
		return f.Content, nil
	}
	return remote.CallResult(ctx, "read_file", path, func(ctx context.Context) (string, error) {
		return s.fs.ReadFile(ctx, path)
	})
}
