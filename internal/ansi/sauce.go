package ansi

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// SAUCE (Standard Architecture for Universal Comment Extensions) is the
// 128-byte metadata record art scene tooling appends to .ans files. It must
// never reach the terminal: the record starts after an EOF byte and renders
// as garbage.
//
// Record layout: "SAUCE" id (5), version (2), title (35), author (20),
// group (20), date YYYYMMDD (8), file size (4), data type (1), file type
// (1), four 16-bit TInfo fields, comment-line count (1), flags (1), filler.

const (
	sauceRecordLen  = 128
	sauceCommentLen = 64
)

var (
	sauceID   = []byte("SAUCE")
	commentID = []byte("COMNT")

	// ErrNoSauce is returned by ParseSauce when no record is present.
	ErrNoSauce = errors.New("no SAUCE record found")
)

// Sauce is a parsed SAUCE record.
type Sauce struct {
	Title    string
	Author   string
	Group    string
	Date     string
	DataType byte
	FileType byte
	TInfo    [4]uint16
	Flags    byte
	Comments []string
}

// StripSauce returns data with any trailing SAUCE record, comment block,
// and EOF marker removed. Data without a record is returned unchanged.
func StripSauce(data []byte) []byte {
	recStart := sauceStart(data)
	if recStart < 0 {
		return data
	}

	trim := sauceRecordLen
	if count := int(data[recStart+104]); count > 0 {
		trim += len(commentID) + sauceCommentLen*count
	}
	if trim > len(data) {
		return nil
	}

	end := len(data) - trim
	// Editors usually place a DOS EOF (0x1A) before the record.
	if end > 0 && data[end-1] == 0x1A {
		end--
	}
	return data[:end]
}

// ParseSauce extracts the SAUCE record and any comment lines.
func ParseSauce(data []byte) (*Sauce, error) {
	recStart := sauceStart(data)
	if recStart < 0 {
		return nil, ErrNoSauce
	}

	rec := data[recStart:]
	field := func(off, n int) string {
		return string(bytes.TrimRight(rec[off:off+n], "\x00 "))
	}

	s := &Sauce{
		Title:    field(7, 35),
		Author:   field(42, 20),
		Group:    field(62, 20),
		Date:     field(82, 8),
		DataType: rec[94],
		FileType: rec[95],
		Flags:    rec[105],
	}
	for i := range s.TInfo {
		s.TInfo[i] = binary.LittleEndian.Uint16(rec[96+2*i:])
	}

	if count := int(rec[104]); count > 0 {
		blockLen := len(commentID) + sauceCommentLen*count
		blockStart := recStart - blockLen
		if blockStart >= 0 && bytes.Equal(data[blockStart:blockStart+len(commentID)], commentID) {
			s.Comments = make([]string, count)
			for i := 0; i < count; i++ {
				off := blockStart + len(commentID) + i*sauceCommentLen
				s.Comments[i] = string(bytes.TrimRight(data[off:off+sauceCommentLen], "\x00 "))
			}
		}
	}

	return s, nil
}

// sauceStart returns the record's start offset, or -1 when absent.
func sauceStart(data []byte) int {
	if len(data) < sauceRecordLen {
		return -1
	}
	start := len(data) - sauceRecordLen
	if !bytes.Equal(data[start:start+len(sauceID)], sauceID) {
		return -1
	}
	return start
}
