package auth

import (
	"testing"
)

func TestStreamTokenRoundTrip(t *testing.T) {
	token, err := GenerateStreamToken(42, "track-1")
	if err != nil {
		t.Fatalf("generate stream token: %v", err)
	}

	claims, err := ParseStreamToken(token)
	if err != nil {
		t.Fatalf("parse stream token: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("userId = %d, want 42", claims.UserID)
	}
	if claims.TrackID != "track-1" {
		t.Errorf("trackId = %s, want track-1", claims.TrackID)
	}
}

// 会话令牌和流令牌不能互换：流令牌只授权单曲读取
func TestStreamTokenIsNotASessionToken(t *testing.T) {
	streamToken, err := GenerateStreamToken(42, "track-1")
	if err != nil {
		t.Fatalf("generate stream token: %v", err)
	}
	if _, err := ParseToken(streamToken); err == nil {
		t.Error("stream token accepted as a session token")
	}

	sessionToken, err := GenerateToken(42, "listener")
	if err != nil {
		t.Fatalf("generate session token: %v", err)
	}
	if _, err := ParseStreamToken(sessionToken); err == nil {
		t.Error("session token accepted as a stream token")
	}
}

func TestParseStreamTokenRejectsGarbage(t *testing.T) {
	if _, err := ParseStreamToken(""); err == nil {
		t.Error("empty token accepted")
	}
	if _, err := ParseStreamToken("not-a-jwt"); err == nil {
		t.Error("malformed token accepted")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("open sesame")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !VerifyPassword("open sesame", hash) {
		t.Error("correct password rejected")
	}
	if VerifyPassword("wrong", hash) {
		t.Error("wrong password accepted")
	}
}
