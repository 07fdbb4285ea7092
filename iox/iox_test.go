package iox

import "testing"

type recordingCloser struct {
	closes int
}

func (c *recordingCloser) Close() error {
	c.closes++
	return nil
}

func TestDiscardClose(t *testing.T) {
	c := &recordingCloser{}
	DiscardClose(c)
	if c.closes != 1 {
		t.Errorf("closes = %d, want 1", c.closes)
	}
}

func TestCloseFunc(t *testing.T) {
	c := &recordingCloser{}
	fn := CloseFunc(c)
	if c.closes != 0 {
		t.Fatal("CloseFunc closed eagerly")
	}
	fn()
	if c.closes != 1 {
		t.Errorf("closes = %d, want 1", c.closes)
	}
}
