package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shire/internal/model"
)

func TestJavaExtractor(t *testing.T) {
	src := `
public class Widget {
    public static final int MAX = 10;
    public void doThing() {}
    private void hidden() {}
}
`
	out, err := javaExtractor{}.Extract("Widget.java", []byte(src))
	require.NoError(t, err)

	names := map[string]model.SymbolKind{}
	for _, s := range out {
		names[s.Name] = s.Kind
	}
	assert.Equal(t, model.SymbolClass, names["Widget"])
	assert.Equal(t, model.SymbolConstant, names["MAX"])
	assert.Equal(t, model.SymbolMethod, names["doThing"])
	_, hiddenPresent := names["hidden"]
	assert.False(t, hiddenPresent)
}

func TestKotlinExtractor(t *testing.T) {
	src := `
class Widget {
    fun doThing() {}
    private fun hidden() {}
}
internal class Secret
`
	out, err := kotlinExtractor{}.Extract("Widget.kt", []byte(src))
	require.NoError(t, err)

	names := map[string]bool{}
	for _, s := range out {
		names[s.Name] = true
	}
	assert.True(t, names["Widget"])
	assert.True(t, names["doThing"])
	assert.False(t, names["hidden"])
	assert.False(t, names["Secret"])
}

func TestPerlExtractor(t *testing.T) {
	src := `
package Widget;

sub new {}
sub _private {}

package Widget::Helper;

sub assist {}
`
	out, err := perlExtractor{}.Extract("Widget.pm", []byte(src))
	require.NoError(t, err)

	var names []string
	for _, s := range out {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "Widget")
	assert.Contains(t, names, "new")
	assert.NotContains(t, names, "_private")
	assert.Contains(t, names, "assist")
}

func TestRubyExtractor(t *testing.T) {
	src := `
class Widget
  def self.build
  end

  def assemble
  end
end

def top_level_helper
end
`
	out, err := rubyExtractor{}.Extract("widget.rb", []byte(src))
	require.NoError(t, err)

	byName := map[string]model.Symbol{}
	for _, s := range out {
		byName[s.Name] = s
	}
	assert.Equal(t, model.SymbolClass, byName["Widget"].Kind)
	assert.Equal(t, "Widget", byName["build"].ParentSymbol)
	assert.Equal(t, model.SymbolMethod, byName["assemble"].Kind)
	assert.Equal(t, model.SymbolFunction, byName["top_level_helper"].Kind)
}

func TestProtoExtractor(t *testing.T) {
	src := `
message User {
  string name = 1;
  oneof contact {
    string email = 2;
    string phone = 3;
  }
}

enum Status {
  ACTIVE = 0;
}

service UserService {
  rpc GetUser (GetUserRequest) returns (User);
  rpc StreamUsers (ListRequest) returns (stream User);
}
`
	out, err := protoExtractor{}.Extract("user.proto", []byte(src))
	require.NoError(t, err)

	byName := map[string]model.Symbol{}
	for _, s := range out {
		byName[s.Name] = s
	}
	assert.Equal(t, model.SymbolStruct, byName["User"].Kind)
	assert.Equal(t, model.SymbolType, byName["contact"].Kind)
	assert.Equal(t, "User", byName["contact"].ParentSymbol)
	assert.Equal(t, model.SymbolEnum, byName["Status"].Kind)
	assert.Equal(t, model.SymbolInterface, byName["UserService"].Kind)
	assert.Equal(t, "UserService", byName["GetUser"].ParentSymbol)
	assert.Equal(t, "stream User", byName["StreamUsers"].ReturnType)
}

func TestRegistryHonorsExcludeExtensions(t *testing.T) {
	reg := NewRegistry([]string{".proto"})
	defer reg.Close()

	out := reg.ExtractFile("user.proto", []byte("message User { }"))
	assert.Empty(t, out)
}

func TestRegistryUnknownExtensionYieldsNoSymbols(t *testing.T) {
	reg := NewRegistry(nil)
	defer reg.Close()

	out := reg.ExtractFile("README.md", []byte("# hello"))
	assert.Empty(t, out)
}
