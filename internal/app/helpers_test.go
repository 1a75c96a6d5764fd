package app

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"bereal/internal/adapter/memory"
	"bereal/internal/domain"

	"go.uber.org/zap"
)

func nopLogger() *zap.Logger { return zap.NewNop() }

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// pngHeader returns a PNG holding only a gray IHDR chunk for w x h, with no
// pixel data. DecodeConfig accepts it; a full decode would allocate w*h bytes.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 0, 0, 0, 0) // 8-bit gray, no interlace

	_ = binary.Write(&buf, binary.BigEndian, uint32(len(chunk)-4))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

// clock is a settable time source shared by the services under test.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	db       *memory.DB
	clock    *clock
	accounts *AccountService
	posts    *PostService
	feed     *FeedService
	comments *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	c := &clock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	accounts := NewAccountService(db, db.NewSessionRepo(), 7*24*time.Hour).WithClock(c.Now)
	return &fixture{
		db:       db,
		clock:    c,
		accounts: accounts,
		posts:    NewPostService(accounts, db, db).WithClock(c.Now),
		feed:     NewFeedService(db, db, nopLogger(), 4).WithClock(c.Now),
		comments: NewCommentService(db, db).WithClock(c.Now),
	}
}

func (f *fixture) register(t *testing.T, name string) (*domain.User, string) {
	t.Helper()
	u, token, err := f.accounts.Register(context.Background(), name, "pw-"+name)
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return u, token
}
