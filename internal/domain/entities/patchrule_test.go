package entities

import "testing"

func TestPatchRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    PatchRule
		wantErr bool
	}{
		{
			name: "equal lengths",
			rule: PatchRule{Name: "ok", Pattern: []byte{1, 2, 3}, Replacement: []byte{4, 5, 6}},
		},
		{
			name:    "replacement shorter",
			rule:    PatchRule{Name: "short", Pattern: []byte{1, 2, 3}, Replacement: []byte{4}},
			wantErr: true,
		},
		{
			name:    "replacement longer",
			rule:    PatchRule{Name: "long", Pattern: []byte{1}, Replacement: []byte{4, 5}},
			wantErr: true,
		},
		{
			name:    "empty pattern",
			rule:    PatchRule{Name: "empty"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseProgramType(t *testing.T) {
	tests := []struct {
		name string
		want ProgramType
	}{
		{"fake", ProgramTypeFake},
		{"npdrm-exec", ProgramTypeNpdrmExec},
		{"npdrm_exec", ProgramTypeNpdrmExec},
		{"npdrm-dynlib", ProgramTypeNpdrmDynlib},
		{"system-exec", ProgramTypeSystemExec},
		{"system_dynlib", ProgramTypeSystemDynlib},
	}
	for _, tt := range tests {
		got, err := ParseProgramType(tt.name)
		if err != nil {
			t.Errorf("ParseProgramType(%q) error = %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProgramType(%q) = 0x%X, want 0x%X", tt.name, got, tt.want)
		}
	}

	if _, err := ParseProgramType("kernel"); err == nil {
		t.Error("ParseProgramType accepted an unknown name")
	}
}

func TestProgramTypeValid(t *testing.T) {
	for _, pt := range []ProgramType{ProgramTypeFake, ProgramTypeNpdrmExec, ProgramTypeNpdrmDynlib, ProgramTypeSystemExec, ProgramTypeSystemDynlib} {
		if !pt.Valid() {
			t.Errorf("ProgramType(0x%X).Valid() = false", uint64(pt))
		}
	}
	for _, pt := range []ProgramType{0, 0x2, 0x7, 0xFF} {
		if pt.Valid() {
			t.Errorf("ProgramType(0x%X).Valid() = true", uint64(pt))
		}
	}
}
