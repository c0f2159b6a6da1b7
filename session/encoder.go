package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	payloadVersionCurrent = 2
	payloadVersionV1      = 1
)

// Encode serializes a Session into the compact binary payload stored in the
// backend. The session id is never part of the payload; it is the storage
// key.
//
// Layout (v2): version | len(subject) | subject | createdAt | expiresAt,
// integers big-endian int64 unix seconds. v1 lacked createdAt, which made
// absolute-lifetime capping impossible; decode still accepts it.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(payloadVersionCurrent)

	if len(s.SubjectID) == 0 {
		return nil, errors.New("subjectID empty")
	}
	if len(s.SubjectID) > 255 {
		return nil, errors.New("subjectID too long")
	}
	buf.WriteByte(byte(len(s.SubjectID)))
	buf.WriteString(s.SubjectID)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a stored payload. Corrupt or truncated input yields an
// error, never a partially filled Session.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != payloadVersionCurrent && version != payloadVersionV1 {
		return nil, errors.New("invalid session payload version")
	}

	subjectLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if subjectLen == 0 {
		return nil, errors.New("invalid session payload: empty subject")
	}

	s := &Session{}

	subject := make([]byte, subjectLen)
	if _, err := io.ReadFull(reader, subject); err != nil {
		return nil, err
	}
	s.SubjectID = string(subject)

	if version == payloadVersionCurrent {
		if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
			return nil, err
		}
	}

	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}

	if reader.Len() != 0 {
		return nil, errors.New("invalid session payload: trailing bytes")
	}

	return s, nil
}
