package anchor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/splice/pkg/source"
)

func TestImportBlock(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		want     string
		wantMiss bool
	}{
		{
			name:    "three_line_block",
			content: "import a from 'a'\nimport b from 'b'\nimport c from 'c'\n\nexport default function Page() {}\n",
			want:    "import a from 'a'\nimport b from 'b'\nimport c from 'c'\n",
		},
		{
			name:    "use_client_preamble",
			content: "'use client'\n\nimport { useState } from 'react'\nimport { Card } from '@/components/ui/card'\nconst x = 1\n",
			want:    "import { useState } from 'react'\nimport { Card } from '@/components/ui/card'\n",
		},
		{
			name:    "multi_line_named_import",
			content: "import {\n  DndContext,\n  closestCenter,\n} from '@dnd-kit/core'\nimport { Plus } from 'lucide-react'\n\nfunction f() {}\n",
			want:    "import {\n  DndContext,\n  closestCenter,\n} from '@dnd-kit/core'\nimport { Plus } from 'lucide-react'\n",
		},
		{
			name:    "go_import_group",
			content: "// Package main does things.\npackage main\n\nimport (\n\t\"fmt\"\n\t\"os\"\n)\n\nfunc main() {}\n",
			want:    "import (\n\t\"fmt\"\n\t\"os\"\n)\n",
		},
		{
			name:    "python_imports_with_blank_gap",
			content: "#!/usr/bin/env python3\nimport re\n\nfrom os import path\n\n\nprint(path)\n",
			want:    "import re\n\nfrom os import path\n",
		},
		{
			name:    "c_includes",
			content: "/* header\n * comment\n */\n#include <stdio.h>\n#include \"x.h\"\nint main() {}\n",
			want:    "#include <stdio.h>\n#include \"x.h\"\n",
		},
		{
			name:    "crlf_line_endings",
			content: "import a from 'a'\r\nimport b from 'b'\r\nconst c = 1\r\n",
			want:    "import a from 'a'\r\nimport b from 'b'\r\n",
		},
		{
			name:    "block_at_eof_without_newline",
			content: "import a from 'a'",
			want:    "import a from 'a'",
		},
		{
			name:     "code_before_imports",
			content:  "const x = 1\nimport a from 'a'\n",
			wantMiss: true,
		},
		{
			name:     "no_imports",
			content:  "// just a comment\n\n",
			wantMiss: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := source.New("file", tt.content)
			m, ok := Find(buf, ImportBlock{})
			if tt.wantMiss {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, m.Text)
		})
	}
}

func TestLineStartAt(t *testing.T) {
	text := "ab\ncd\nef"
	assert.Equal(t, 0, lineStartAt(text, 0))
	assert.Equal(t, 3, lineStartAt(text, 1))
	assert.Equal(t, 3, lineStartAt(text, 3))
	assert.Equal(t, 6, lineStartAt(text, 4))
	assert.Equal(t, len(text), lineStartAt(text, 7))
}
