package domain

import "testing"

func TestDescriptor(t *testing.T) {
	v := Vehicle{Year: 2019, Make: "Honda", Model: "Civic", Color: "Blue"}
	if got := v.Descriptor().String(); got != "2019 Honda Civic in Blue" {
		t.Fatalf("unexpected descriptor %q", got)
	}
	if !(Descriptor{Year: " ", Make: ""}).IsBlank() {
		t.Fatal("expected whitespace-only descriptor to be blank")
	}
	if (Descriptor{Color: "Red"}).IsBlank() {
		t.Fatal("expected descriptor with color to be non-blank")
	}
}
