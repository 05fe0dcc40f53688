package codec_test

import (
	"sync"
	"testing"

	"github.com/freezedrieddata/fdd/codec"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "codec")
}

type upperCodec struct{ name string }

func (c upperCodec) Name() string                 { return c.name }
func (c upperCodec) Encode(v any) ([]byte, error) { return []byte(v.(string)), nil }
func (c upperCodec) Decode(b []byte) (any, error) { return string(b), nil }

var _ = Describe("registry", func() {
	It("finds the built-in codecs", func() {
		_, ok := codec.Lookup("json")
		Expect(ok).To(BeTrue())
		_, ok = codec.Lookup("utf8")
		Expect(ok).To(BeTrue())
	})

	It("reports a miss for an unregistered name", func() {
		_, ok := codec.Lookup("does-not-exist")
		Expect(ok).To(BeFalse())
	})

	It("makes a newly registered codec visible to Lookup", func() {
		codec.Register(upperCodec{name: "codec-test-custom"})
		c, ok := codec.Lookup("codec-test-custom")
		Expect(ok).To(BeTrue())
		Expect(c.Name()).To(Equal("codec-test-custom"))
	})

	It("survives concurrent Register and Lookup without racing", func() {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				codec.Register(upperCodec{name: "codec-test-concurrent"})
			}(i)
			go func(i int) {
				defer wg.Done()
				codec.Lookup("codec-test-concurrent")
				codec.Lookup("json")
			}(i)
		}
		wg.Wait()

		c, ok := codec.Lookup("codec-test-concurrent")
		Expect(ok).To(BeTrue())
		Expect(c.Name()).To(Equal("codec-test-concurrent"))
	})
})
