package naming

import (
	"errors"
	"reflect"
	"testing"
)

func TestApplyMetadata(t *testing.T) {
	got, err := ApplyMetadata(`\g<plate>_\g<well_row>\g<well_column>`, wellMetadata())
	if err != nil {
		t.Fatalf("ApplyMetadata() error = %v", err)
	}
	if got != "XG45_A01" {
		t.Errorf("ApplyMetadata() = %q, want XG45_A01", got)
	}
}

func TestApplyMetadata_NoTags(t *testing.T) {
	got, err := ApplyMetadata("plain_name", nil)
	if err != nil {
		t.Fatalf("ApplyMetadata() error = %v", err)
	}
	if got != "plain_name" {
		t.Errorf("ApplyMetadata() = %q", got)
	}
}

func TestApplyMetadata_RepeatedAndEmptyValue(t *testing.T) {
	md := map[string]string{"plate": "P1", "site": ""}
	got, err := ApplyMetadata(`\g<plate>/\g<plate>_s\g<site>`, md)
	if err != nil {
		t.Fatalf("ApplyMetadata() error = %v", err)
	}
	if got != "P1/P1_s" {
		t.Errorf("ApplyMetadata() = %q, want P1/P1_s", got)
	}
}

func TestApplyMetadata_Missing(t *testing.T) {
	_, err := ApplyMetadata(`\g<plate>_\g<channel>`, wellMetadata())
	if !errors.Is(err, ErrMissingMetadataTag) {
		t.Fatalf("ApplyMetadata() error = %v, want ErrMissingMetadataTag", err)
	}
	var rerr *ResolveError
	if !errors.As(err, &rerr) || rerr.Tag != "channel" {
		t.Errorf("error = %#v, want tag channel", err)
	}
}

func TestFindMetadataTokens(t *testing.T) {
	tests := []struct {
		template string
		want     []string
	}{
		{`Illum_\g<plate>_\g<well_row>\g<well_column>`, []string{"plate", "well_row", "well_column"}},
		{`\g<plate>/\g<plate>`, []string{"plate"}},
		{"no tags here", []string{}},
		{`g<plate>`, []string{}},
	}
	for _, tt := range tests {
		got := FindMetadataTokens(tt.template)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("FindMetadataTokens(%q) = %v, want %v", tt.template, got, tt.want)
		}
	}
}

func TestParseMethodAndPathMode(t *testing.T) {
	if m, err := ParseMethod("Name with metadata"); err != nil || m != MethodWithMetadata {
		t.Errorf("ParseMethod(label) = %q, %v", m, err)
	}
	if m, err := ParseMethod("sequential"); err != nil || m != MethodSequential {
		t.Errorf("ParseMethod(value) = %q, %v", m, err)
	}
	if _, err := ParseMethod("bogus"); err == nil {
		t.Error("ParseMethod(bogus) should fail")
	}
	if p, err := ParsePathMode("Same directory as image"); err != nil || p != PathWithImageDir {
		t.Errorf("ParsePathMode(label) = %q, %v", p, err)
	}
	if _, err := ParsePathMode(""); err == nil {
		t.Error("ParsePathMode(\"\") should fail")
	}
}
