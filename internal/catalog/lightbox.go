package catalog

import "sync"

// Lightbox is the full-size image overlay. Page scrolling is locked while it
// is open.
type Lightbox struct {
	mu    sync.Mutex
	open  bool
	image string
	title string
}

// Open shows image with its title.
func (l *Lightbox) Open(image, title string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open, l.image, l.title = true, image, title
}

// Close hides the overlay.
func (l *Lightbox) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open, l.image, l.title = false, "", ""
}

// HandleKey closes the overlay on Escape and reports whether it did.
func (l *Lightbox) HandleKey(key string) bool {
	if key != "Escape" || !l.IsOpen() {
		return false
	}
	l.Close()
	return true
}

// ClickOutside closes the overlay after a click on the backdrop.
func (l *Lightbox) ClickOutside() {
	l.Close()
}

// IsOpen reports whether the overlay is shown.
func (l *Lightbox) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

// ScrollLocked reports whether background scrolling is suspended.
func (l *Lightbox) ScrollLocked() bool {
	return l.IsOpen()
}

// Current returns the shown image and title, empty when closed.
func (l *Lightbox) Current() (image, title string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.image, l.title
}
