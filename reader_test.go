package fdd_test

import (
	"os"

	"github.com/freezedrieddata/fdd"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reader", func() {
	var path string
	var subject *fdd.Reader

	AfterEach(func() {
		if subject != nil {
			_ = subject.Close()
		}
		_ = os.Remove(path)
	})

	BeforeEach(func() {
		path = seedUnstructured(50)
		var err error
		subject, err = fdd.Open(path, "")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should report Len and Keys", func() {
		Expect(subject.Len()).To(Equal(50))
		Expect(subject.Keys()).To(HaveLen(50))
		Expect(subject.Keys()[0]).To(Equal(0))
	})

	It("should Get by key", func() {
		row, err := subject.Get(7)
		Expect(err).NotTo(HaveOccurred())
		v, err := row.Value()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(float64(49))) // json round-trips ints as float64
	})

	It("should return NotFound for a missing key", func() {
		_, err := subject.Get(1000)
		Expect(err).To(HaveOccurred())
		Expect(err.(*fdd.Error).Kind).To(Equal(fdd.NotFound))
	})

	It("should iterate Items in insertion order", func() {
		items, err := subject.Items()
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(HaveLen(50))
		Expect(items[3].Key).To(Equal(3))
	})

	It("should reject an unknown split", func() {
		_, err := fdd.Open(path, "nope")
		Expect(err).To(HaveOccurred())
	})

	It("should report no properties when none were set", func() {
		Expect(subject.PropertyNames()).To(BeEmpty())
		_, err := subject.Property("missing")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Reader split views", func() {
	var path string

	AfterEach(func() {
		_ = os.Remove(path)
	})

	It("should compose a deterministic union of splits", func() {
		path = tempPath()
		w, err := fdd.NewWriter(path, fdd.Fresh, nil)
		Expect(err).NotTo(HaveOccurred())
		for _, k := range []string{"a", "b", "c", "d", "e"} {
			Expect(w.Set(k, k)).To(Succeed())
		}
		Expect(w.MakeSplit("s1", []any{"b", "a"})).To(Succeed())
		Expect(w.MakeSplit("s2", []any{"a", "c", "d"})).To(Succeed())
		Expect(w.Close()).To(Succeed())

		r, err := fdd.Open(path, "s1+s2")
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		// first occurrence wins across split boundaries: "a" appears in
		// both s1 and s2 but keeps s1's position.
		Expect(r.Keys()).To(Equal([]any{"b", "a", "c", "d"}))
	})

	It("should treat a path-embedded split spec as equivalent to passing split", func() {
		path = tempPath()
		w, err := fdd.NewWriter(path, fdd.Fresh, nil)
		Expect(err).NotTo(HaveOccurred())
		for _, k := range []string{"a", "b", "c"} {
			Expect(w.Set(k, k)).To(Succeed())
		}
		Expect(w.MakeSplit("train", []any{"a", "b"})).To(Succeed())
		Expect(w.Close()).To(Succeed())

		viaParam, err := fdd.Open(path, "train")
		Expect(err).NotTo(HaveOccurred())
		defer viaParam.Close()

		viaPath, err := fdd.Open(path+"^train", "")
		Expect(err).NotTo(HaveOccurred())
		defer viaPath.Close()

		Expect(viaPath.Keys()).To(Equal(viaParam.Keys()))
	})
})
