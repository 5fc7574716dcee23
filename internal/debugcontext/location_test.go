package debugcontext

import "testing"

func TestLocation_String(t *testing.T) {
	t.Run("with instruction and address", func(t *testing.T) {
		loc := Loc("sample.txt", 12, "0046751D")
		if loc.String() != "sample.txt:#12@0046751D" {
			t.Errorf("Expected 'sample.txt:#12@0046751D', got '%s'", loc.String())
		}
	})

	t.Run("without address", func(t *testing.T) {
		loc := Loc("sample.txt", 12, "")
		if loc.String() != "sample.txt:#12" {
			t.Errorf("Expected 'sample.txt:#12', got '%s'", loc.String())
		}
	})

	t.Run("whole-input location", func(t *testing.T) {
		loc := LocSource("sample.txt")
		if loc.String() != "sample.txt" {
			t.Errorf("Expected 'sample.txt', got '%s'", loc.String())
		}
	})
}

func TestLocation_Accessors(t *testing.T) {
	loc := Loc("test.txt", 7, "0000ABCD")

	if loc.Source() != "test.txt" {
		t.Errorf("Expected Source 'test.txt', got '%s'", loc.Source())
	}
	if loc.InstructionIndex() != 7 {
		t.Errorf("Expected InstructionIndex 7, got %d", loc.InstructionIndex())
	}
	if loc.Address() != "0000ABCD" {
		t.Errorf("Expected Address '0000ABCD', got '%s'", loc.Address())
	}
}
