package bitvec

import "testing"

func TestNewAllUnset(t *testing.T) {
	v := New(10)
	if n := v.Size(); n != 10 {
		t.Fatalf("Size:\nhave %d\nwant 10", n)
	}
	if !v.AllZero() {
		t.Fatal("AllZero:\nhave false\nwant true")
	}
}

func TestSetAndGet(t *testing.T) {
	v := New(70)
	v.Set(0, true)
	v.Set(63, true)
	v.Set(64, true)
	for _, x := range [...]struct {
		i    int
		want bool
	}{
		{0, true}, {1, false}, {63, true}, {64, true}, {65, false},
	} {
		if got := v.Get(x.i); got != x.want {
			t.Fatalf("Get(%d):\nhave %v\nwant %v", x.i, got, x.want)
		}
	}
	if v.AllZero() {
		t.Fatal("AllZero:\nhave true\nwant false")
	}
	if n := v.Count(); n != 3 {
		t.Fatalf("Count:\nhave %d\nwant 3", n)
	}
}

func TestSetAllCanonizesTrailingBits(t *testing.T) {
	v := New(70)
	v.SetAll(true)
	if n := v.Count(); n != 70 {
		t.Fatalf("Count after SetAll(true):\nhave %d\nwant 70", n)
	}
	v.SetAll(false)
	if !v.AllZero() {
		t.Fatal("AllZero after SetAll(false):\nhave false\nwant true")
	}
}

func TestComplement(t *testing.T) {
	v := New(70)
	v.Set(0, true)
	v.Complement()
	if v.Get(0) {
		t.Fatal("Get(0) after Complement:\nhave true\nwant false")
	}
	if n := v.Count(); n != 69 {
		t.Fatalf("Count after Complement:\nhave %d\nwant 69", n)
	}
}

func TestClone(t *testing.T) {
	v := New(8)
	v.Set(3, true)
	c := v.Clone()
	c.Set(4, true)
	if v.Get(4) {
		t.Fatal("original mutated by clone's Set")
	}
	if !c.Get(3) || !c.Get(4) {
		t.Fatal("clone should carry the original's bits plus its own")
	}
}

func TestAndOrXor(t *testing.T) {
	a := New(8)
	a.Set(0, true)
	a.Set(1, true)
	b := New(8)
	b.Set(1, true)
	b.Set(2, true)

	and := a.Clone()
	and.And(b)
	if and.Get(0) || !and.Get(1) || and.Get(2) {
		t.Fatal("And produced an unexpected result")
	}

	or := a.Clone()
	or.Or(b)
	if !or.Get(0) || !or.Get(1) || !or.Get(2) {
		t.Fatal("Or produced an unexpected result")
	}

	xor := a.Clone()
	xor.Xor(b)
	if !xor.Get(0) || xor.Get(1) || !xor.Get(2) {
		t.Fatal("Xor produced an unexpected result")
	}
}
