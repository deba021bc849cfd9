package teetime

import (
	"encoding/json"
	"testing"
)

func TestOutcomeJSON(t *testing.T) {
	booked := Booked(Booking{Date: "2025-06-11", Time: "4:45 PM", Players: 4, Holes: 9, CartType: "Any"})
	b, err := json.Marshal(booked)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"success":true,"booking":{"date":"2025-06-11","time":"4:45 PM","players":4,"holes":9,"cartType":"Any"}}`
	if string(b) != want {
		t.Fatalf("got %s", b)
	}

	nm, _ := json.Marshal(NoMatch("2025-06-11", "No preferred times available"))
	if string(nm) != `{"success":false,"reason":"No preferred times available"}` {
		t.Fatalf("got %s", nm)
	}

	f, _ := json.Marshal(Failed("2025-06-11", "boom"))
	if string(f) != `{"success":false,"error":"boom"}` {
		t.Fatalf("got %s", f)
	}
}
