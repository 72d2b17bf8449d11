package pools

import "testing"

func TestBytePoolGetReturnsRequestedLength(t *testing.T) {
	bp := NewBytePool()

	for _, size := range []int{10, 512, 2000, 9000, 100000} {
		buf := bp.Get(size)
		if len(buf) != size {
			t.Errorf("Get(%d): expected len %d, got %d", size, size, len(buf))
		}
	}
}

func TestBytePoolPutGetReuses(t *testing.T) {
	bp := NewBytePool()

	buf := bp.Get(400)
	buf[0] = 0xAB
	bp.Put(buf)

	buf2 := bp.Get(400)
	if cap(buf2) < 400 {
		t.Errorf("expected recycled buffer to have sufficient capacity, got cap=%d", cap(buf2))
	}
}

func TestBytePoolOversizedFallsBackToAlloc(t *testing.T) {
	bp := NewBytePoolWithSizes([]int{64, 128})
	buf := bp.Get(1000)
	if len(buf) != 1000 {
		t.Errorf("expected exact-size fallback allocation, got len=%d", len(buf))
	}
	bp.Put(buf) // must not panic even though it fits no tier
}
