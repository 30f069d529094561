package app

import "strings"

// Language describes one programming language the editor offers.
type Language struct {
	ID       string
	FullName string
	// EditorID is the syntax-highlighting mode the browser editor uses.
	EditorID string
	// Template is the default code the editor opens with when neither a
	// local draft nor remote progress exists.
	Template string
	Enabled  bool
}

// Languages returns the hardcoded list of supported languages.
func Languages() []Language {
	return []Language{
		{
			ID:       "c",
			FullName: "C (GCC 12)",
			EditorID: "c",
			Template: "#include <stdio.h>\n\nint main(void) {\n    \n    return 0;\n}\n",
			Enabled:  true,
		},
		{
			ID:       "cpp17",
			FullName: "C++ 17",
			EditorID: "cpp",
			Template: "#include <bits/stdc++.h>\nusing namespace std;\n\nint main() {\n    \n    return 0;\n}\n",
			Enabled:  true,
		},
		{
			ID:       "java17",
			FullName: "Java 17",
			EditorID: "java",
			Template: "public class Main {\n    public static void main(String[] args) {\n        \n    }\n}\n",
			Enabled:  true,
		},
		{
			ID:       "python3.11",
			FullName: "Python 3.11",
			EditorID: "python",
			Template: "def main():\n    pass\n\n\nif __name__ == \"__main__\":\n    main()\n",
			Enabled:  true,
		},
		{
			ID:       "go1.21",
			FullName: "Go 1.21",
			EditorID: "go",
			Template: "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println()\n}\n",
			Enabled:  false,
		},
	}
}

// LanguageByID looks a language up in the registry.
func LanguageByID(id string) (Language, bool) {
	for _, lang := range Languages() {
		if lang.ID == id {
			return lang, true
		}
	}
	return Language{}, false
}

// Meaningful reports whether code counts as actual user work for the given
// language: non-empty after trimming and not byte-identical to the
// language's default template. The resolution policy and the autosave
// guard must share this predicate; a draft one of them accepts and the
// other rejects would either never be offered back or never be saved.
func Meaningful(code string, lang Language) bool {
	if strings.TrimSpace(code) == "" {
		return false
	}
	return code != lang.Template
}
