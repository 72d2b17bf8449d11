package codec

import "testing"

func TestJSONCodecRoundTrip(t *testing.T) {
	c := JSONCodec{}
	data, err := c.Encode(map[string]string{"a": "1"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var out map[string]string
	if err := c.Decode(data, &out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out["a"] != "1" {
		t.Errorf("expected a=1, got %v", out)
	}
}

func TestGobCodecRoundTrip(t *testing.T) {
	c := GobCodec{}
	data, err := c.Encode(map[string]string{"x": "y"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var out map[string]string
	if err := c.Decode(data, &out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out["x"] != "y" {
		t.Errorf("expected x=y, got %v", out)
	}
}

func TestWireCodecRoundTrip(t *testing.T) {
	c := WireCodec{}
	in := map[string]string{"key": "value"}
	data, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var out map[string]string
	if err := c.Decode(data, &out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out["key"] != "value" {
		t.Errorf("expected key=value, got %v", out)
	}
}

func TestWireCodecRejectsWrongType(t *testing.T) {
	c := WireCodec{}
	if _, err := c.Encode("not a map"); err == nil {
		t.Error("expected an error encoding a non-map value")
	}
}

func TestByNameResolvesKnownCodecs(t *testing.T) {
	for _, name := range []string{"json", "", "gob", "wire"} {
		if _, err := ByName(name); err != nil {
			t.Errorf("ByName(%q) returned error: %v", name, err)
		}
	}
	if _, err := ByName("bogus"); err != ErrUnsupportedCodec {
		t.Errorf("expected ErrUnsupportedCodec for an unknown name, got %v", err)
	}
}
