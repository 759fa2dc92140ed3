package product

import "testing"

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog(`[{"id":1,"name":"flex-30","interest_rate":10,"max_duration":12,"fund_id":1}]`)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d", c.Len())
	}
	p, ok := c.Get(1)
	if !ok {
		t.Fatal("product 1 missing")
	}
	if p.Name != "flex-30" || p.InterestRate != 10 || p.MaxDuration != 12 || p.FundID != 1 {
		t.Fatalf("got %+v", p)
	}
	if _, ok := c.Get(2); ok {
		t.Fatal("unexpected product 2")
	}
}

func TestParseCatalog_Invalid(t *testing.T) {
	if _, err := ParseCatalog(`{"not":"a list"}`); err == nil {
		t.Fatal("want error for malformed catalog")
	}
}
