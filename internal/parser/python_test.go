package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intel/internal/types"
)

const sampleModule = `"""Inventory helpers."""
import os
import json as j
from collections import OrderedDict, defaultdict as dd
from . import sibling

MAX_ITEMS = 10
registry: dict = {}


@cache
def load(path: str) -> dict:
    """Load a file."""
    with open(path) as fh:
        return j.load(fh)


async def fetch(url, *, timeout=5):
    return url


class Store(Base, metaclass=Meta):
    """A store."""
    _instance = None
    limit: int = 3

    def __init__(self, name):
        self.name = name
        self._items, self.count = [], 0

    @property
    def size(self) -> int:
        return len(self._items)
`

func extract(t *testing.T, src string) *ParsedFile {
	t.Helper()
	file, err := NewPythonExtractor().Extract(context.Background(), "pkg/store.py", []byte(src))
	require.NoError(t, err)
	t.Cleanup(file.Close)
	return file
}

func TestPythonExtractor_Structure(t *testing.T) {
	file := extract(t, sampleModule)
	m := file.Module

	require.NotNil(t, file.Tree)
	assert.Equal(t, types.LanguagePython, m.Language)
	require.NotNil(t, m.Docstring)
	assert.Equal(t, "Inventory helpers.", *m.Docstring)

	assert.Equal(t, []string{"os", "json", "collections.OrderedDict", "collections.defaultdict", "..sibling"}, m.Imports)
	assert.Equal(t, []string{"MAX_ITEMS", "registry"}, m.GlobalVariables)

	require.Len(t, m.Functions, 2)
	load := m.Functions[0]
	assert.Equal(t, "load", load.Name)
	assert.Equal(t, []string{"path"}, load.Parameters)
	require.NotNil(t, load.ReturnType)
	assert.Equal(t, "dict", *load.ReturnType)
	assert.Equal(t, []string{"cache"}, load.Decorators)
	require.NotNil(t, load.Docstring)
	assert.Equal(t, "Load a file.", *load.Docstring)
	assert.Equal(t, 12, load.Location.LineStart)
	assert.Equal(t, 15, load.Location.LineEnd)

	fetch := m.Functions[1]
	assert.True(t, fetch.IsAsync)
	assert.Equal(t, []string{"url"}, fetch.Parameters)

	require.Len(t, m.Classes, 1)
	store := m.Classes[0]
	assert.Equal(t, "Store", store.Name)
	assert.Equal(t, []string{"Base"}, store.ParentClasses)
	assert.Equal(t, []string{"_instance", "limit", "name", "_items", "count"}, store.Attributes)
	require.Len(t, store.Methods, 2)
	assert.Equal(t, "__init__", store.Methods[0].Name)
	assert.Equal(t, []string{"self", "name"}, store.Methods[0].Parameters)
	assert.Equal(t, []string{"property"}, store.Methods[1].Decorators)
}

func TestPythonExtractor_RelativeImport(t *testing.T) {
	file := extract(t, "from . import sibling\nfrom ..pkg import *\n")
	assert.Equal(t, []string{"..sibling", "..pkg.*"}, file.Module.Imports)
}

func TestPythonExtractor_Parameters(t *testing.T) {
	file := extract(t, "def f(self, a: int, b=1, c: str = 'x', *args, d, **kw) -> None:\n    pass\n")
	require.Len(t, file.Module.Functions, 1)
	assert.Equal(t, []string{"self", "a", "b", "c"}, file.Module.Functions[0].Parameters)
}

func TestPythonExtractor_FunctionIssues(t *testing.T) {
	file := extract(t, "def wide(a, b, c, d, e, f):\n    return a\n\nclass K:\n    def __init__(self):\n        pass\n")

	wide := file.Module.Functions[0]
	ids := make([]string, 0, len(wide.Issues))
	for _, issue := range wide.Issues {
		ids = append(ids, issue.RuleID)
	}
	assert.ElementsMatch(t, []string{RuleMissingReturnType, RuleTooManyParameters}, ids)

	assert.Empty(t, file.Module.Classes[0].Methods[0].Issues, "__init__ is exempt from return annotations")
}

func TestPythonExtractor_DisabledRules(t *testing.T) {
	e := NewPythonExtractor(WithDisabledRules(RuleMissingReturnType), WithParameterLimit(10))
	file, err := e.Extract(context.Background(), "a.py", []byte("def wide(a, b, c, d, e, f):\n    return a\n"))
	require.NoError(t, err)
	defer file.Close()

	assert.Empty(t, file.Module.Functions[0].Issues)
}

func TestPythonExtractor_SyntaxErrorDegrades(t *testing.T) {
	file := extract(t, "import os\n\ndef broken(:\n    return 1\n")
	m := file.Module

	assert.Nil(t, file.Tree)
	assert.Empty(t, m.Functions)
	assert.Empty(t, m.Classes)
	assert.Empty(t, m.Imports)
	require.Len(t, m.Issues, 1)

	issue := m.Issues[0]
	assert.Equal(t, types.SeverityError, issue.Severity)
	assert.Equal(t, types.CategoryStyle, issue.Category)
	assert.Equal(t, types.RuleSyntaxError, issue.RuleID)
	assert.Equal(t, 3, issue.Location.LineStart)
	assert.True(t, m.HasSyntaxError())
}

func TestPythonExtractor_EmptyFile(t *testing.T) {
	file := extract(t, "")
	assert.Empty(t, file.Module.Functions)
	assert.Empty(t, file.Module.Issues)
	assert.Nil(t, file.Module.Docstring)
}

func TestPythonExtractor_FileTooLarge(t *testing.T) {
	e := NewPythonExtractor(WithPythonMaxFileSize(4))
	_, err := e.Extract(context.Background(), "a.py", []byte("x = 1\n"))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestPythonExtractor_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPythonExtractor().Extract(ctx, "a.py", []byte("x = 1\n"))
	assert.ErrorIs(t, err, context.Canceled)
}
