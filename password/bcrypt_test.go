package password

import "testing"

func TestHashAndVerify(t *testing.T) {
	b, err := NewBcrypt(0)
	if err != nil {
		t.Fatalf("NewBcrypt failed: %v", err)
	}

	hash, err := b.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if !b.Verify("correct-horse-battery", hash) {
		t.Fatal("correct password rejected")
	}
	if b.Verify("wrong-password", hash) {
		t.Fatal("wrong password accepted")
	}
	if b.Verify("correct-horse-battery", "not-a-bcrypt-hash") {
		t.Fatal("corrupt hash accepted")
	}
}

func TestNewBcryptRejectsWeakCost(t *testing.T) {
	if _, err := NewBcrypt(4); err == nil {
		t.Fatal("expected weak cost to be rejected")
	}
}
