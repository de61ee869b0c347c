package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalPaths(t *testing.T) {
	stack := []byte(`goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/gootp/internal/otp/usecase.(*Usecase).Generate(0xc000, {0x1, 0x2})
	/src/gootp/internal/otp/usecase/generate.go:41 +0x1a5
github.com/shandysiswandi/gootp/internal/pkg/router.(*Router).handle(...)
	/src/gootp/internal/pkg/router/router.go:88 +0x2b
`)

	assert.Equal(t, []string{
		"internal/otp/usecase/generate.go:41",
		"internal/pkg/router/router.go:88",
	}, InternalPaths(stack))
	assert.Empty(t, InternalPaths([]byte("goroutine 1 [running]:\nmain.main()\n\t/src/main.go:9 +0x1\n")))
}
