package fdd_test

import (
	"os"

	"github.com/freezedrieddata/fdd"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Writer", func() {
	var path string

	AfterEach(func() {
		_ = os.Remove(path)
	})

	It("should write an unstructured file", func() {
		path = tempPath()
		w, err := fdd.NewWriter(path, fdd.Fresh, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Set("alice", "hello")).To(Succeed())
		Expect(w.Set("bob", "world")).To(Succeed())
		Expect(w.Close()).To(Succeed())

		r, err := fdd.Open(path, "")
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		row, err := r.Get("alice")
		Expect(err).NotTo(HaveOccurred())
		v, err := row.Value()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("hello"))
	})

	It("should reject a duplicate key", func() {
		path = tempPath()
		w, err := fdd.NewWriter(path, fdd.Fresh, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Set("k", 1)).To(Succeed())

		err = w.Set("k", 2)
		var ferr *fdd.Error
		Expect(err).To(HaveOccurred())
		Expect(err).To(BeAssignableToTypeOf(ferr))
		Expect(err.(*fdd.Error).Kind).To(Equal(fdd.DuplicateKey))

		Expect(w.Close()).To(Succeed())
	})

	It("should fail Fresh over an existing file", func() {
		path = seedUnstructured(1)
		_, err := fdd.NewWriter(path, fdd.Fresh, nil)
		Expect(err).To(HaveOccurred())
	})

	It("should assemble a columnar row piecewise and auto-finalize", func() {
		path = tempPath()
		w, err := fdd.NewWriter(path, fdd.Fresh, &fdd.Options{
			Columns: []fdd.Column{{Name: "text", Codec: "utf8"}, {Name: "label", Codec: "int64"}},
		})
		Expect(err).NotTo(HaveOccurred())

		pr, err := w.Row("k1")
		Expect(err).NotTo(HaveOccurred())
		Expect(pr.Set("text", "hi")).To(Succeed())

		row, err := w.Get("k1")
		Expect(err).NotTo(HaveOccurred())
		label, err := row.ByName("label")
		Expect(err).NotTo(HaveOccurred())
		Expect(label).To(BeNil())

		Expect(pr.Set("label", int64(7))).To(Succeed())

		// The row auto-finalized on the last column fill; Row() for the
		// same key must now report DuplicateKey.
		_, err = w.Row("k1")
		Expect(err).To(HaveOccurred())

		Expect(w.Close()).To(Succeed())

		r, err := fdd.Open(path, "")
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		out, err := r.Get("k1")
		Expect(err).NotTo(HaveOccurred())
		d, err := out.Dict()
		Expect(err).NotTo(HaveOccurred())
		Expect(d["text"]).To(Equal("hi"))
		Expect(d["label"]).To(Equal(int64(7)))
	})

	It("should leave a column absent if never set before Close", func() {
		path = tempPath()
		w, err := fdd.NewWriter(path, fdd.Fresh, &fdd.Options{
			Columns: []fdd.Column{{Name: "text", Codec: "utf8"}, {Name: "label", Codec: "int64"}},
		})
		Expect(err).NotTo(HaveOccurred())

		pr, err := w.Row("k1")
		Expect(err).NotTo(HaveOccurred())
		Expect(pr.Set("text", "hi")).To(Succeed())
		Expect(w.Close()).To(Succeed())

		r, err := fdd.Open(path, "")
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		row, err := r.Get("k1")
		Expect(err).NotTo(HaveOccurred())
		label, err := row.ByName("label")
		Expect(err).NotTo(HaveOccurred())
		Expect(label).To(BeNil())
	})

	It("should roundtrip splits and properties", func() {
		path = tempPath()
		w, err := fdd.NewWriter(path, fdd.Fresh, nil)
		Expect(err).NotTo(HaveOccurred())
		for _, k := range []string{"a", "b", "c", "d"} {
			Expect(w.Set(k, k)).To(Succeed())
		}
		Expect(w.MakeSplit("train", []any{"a", "b"})).To(Succeed())
		Expect(w.MakeSplit("val", []any{"c"})).To(Succeed())
		Expect(w.AddToSplit("train", []any{"d"})).To(Succeed())
		Expect(w.SetProperty("version", int64(3))).To(Succeed())
		Expect(w.Close()).To(Succeed())

		r, err := fdd.Open(path, "train")
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		Expect(r.Keys()).To(Equal([]any{"a", "b", "d"}))
		Expect(r.Contains("c")).To(BeFalse())

		Expect(r.LoadNewSplit("val")).To(Succeed())
		Expect(r.Keys()).To(Equal([]any{"a", "b", "d", "c"}))

		v, err := r.Property("version")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(float64(3))) // json round-trips ints as float64
	})

	It("should support reopen-for-append", func() {
		path = tempPath()
		w, err := fdd.NewWriter(path, fdd.Fresh, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Set("a", "1")).To(Succeed())
		Expect(w.Close()).To(Succeed())

		w2, err := fdd.NewWriter(path, fdd.Reopen, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(w2.Set("b", "2")).To(Succeed())
		Expect(w2.Close()).To(Succeed())

		r, err := fdd.Open(path, "")
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()
		Expect(r.Len()).To(Equal(2))

		rowA, err := r.Get("a")
		Expect(err).NotTo(HaveOccurred())
		va, err := rowA.Value()
		Expect(err).NotTo(HaveOccurred())
		Expect(va).To(Equal("1"))
	})

	It("should commit rows left pending at Close in creation order, not map order", func() {
		path = tempPath()
		w, err := fdd.NewWriter(path, fdd.Fresh, &fdd.Options{
			Columns: []fdd.Column{{Name: "text", Codec: "utf8"}, {Name: "label", Codec: "int64"}},
		})
		Expect(err).NotTo(HaveOccurred())

		// Only "text" is set, so every row stays pending until Close.
		// Many keys so random map iteration would be overwhelmingly
		// likely to disagree with creation order at least once.
		keys := []any{"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8", "k9"}
		for _, k := range keys {
			pr, err := w.Row(k)
			Expect(err).NotTo(HaveOccurred())
			Expect(pr.Set("text", k.(string))).To(Succeed())
		}
		Expect(w.Close()).To(Succeed())

		r, err := fdd.Open(path, "")
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()
		Expect(r.Keys()).To(Equal(keys))
	})

	It("should preserve a non-default DefaultCodec across reopen", func() {
		path = tempPath()
		w, err := fdd.NewWriter(path, fdd.Fresh, &fdd.Options{DefaultCodec: "utf8"})
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Set("a", "hello")).To(Succeed())
		Expect(w.Close()).To(Succeed())

		// Reopening with nil Options must not silently coerce the
		// file's default codec back to "json".
		w2, err := fdd.NewWriter(path, fdd.Reopen, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(w2.Set("b", "world")).To(Succeed())
		Expect(w2.Close()).To(Succeed())

		r, err := fdd.Open(path, "")
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		rowA, err := r.Get("a")
		Expect(err).NotTo(HaveOccurred())
		va, err := rowA.Value()
		Expect(err).NotTo(HaveOccurred())
		Expect(va).To(Equal("hello"))

		rowB, err := r.Get("b")
		Expect(err).NotTo(HaveOccurred())
		vb, err := rowB.Value()
		Expect(err).NotTo(HaveOccurred())
		Expect(vb).To(Equal("world"))
	})

	It("should reject a reopen whose explicit DefaultCodec disagrees with the file", func() {
		path = tempPath()
		w, err := fdd.NewWriter(path, fdd.Fresh, &fdd.Options{DefaultCodec: "utf8"})
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Set("a", "hello")).To(Succeed())
		Expect(w.Close()).To(Succeed())

		_, err = fdd.NewWriter(path, fdd.Reopen, &fdd.Options{DefaultCodec: "json"})
		Expect(err).To(HaveOccurred())
		Expect(err.(*fdd.Error).Kind).To(Equal(fdd.SchemaMismatch))
	})

	It("should reject BZ2 compression at construction", func() {
		path = tempPath()
		_, err := fdd.NewWriter(path, fdd.Fresh, &fdd.Options{Compression: fdd.BZ2Compression})
		Expect(err).To(HaveOccurred())
		Expect(err.(*fdd.Error).Kind).To(Equal(fdd.CodecError))
	})

	It("should copy a row intact when codec and compression match", func() {
		srcPath := seedColumnar(3)
		defer os.Remove(srcPath)

		src, err := fdd.Open(srcPath, "")
		Expect(err).NotTo(HaveOccurred())
		defer src.Close()

		path = tempPath()
		dest, err := fdd.NewWriter(path, fdd.Fresh, &fdd.Options{
			Columns: []fdd.Column{{Name: "text", Codec: "utf8"}, {Name: "label", Codec: "int64"}},
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(dest.CopyRowFrom(src, 1, nil, nil)).To(Succeed())
		Expect(dest.Close()).To(Succeed())

		r, err := fdd.Open(path, "")
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		row, err := r.Get(1)
		Expect(err).NotTo(HaveOccurred())
		d, err := row.Dict()
		Expect(err).NotTo(HaveOccurred())
		Expect(d["text"]).To(Equal("row"))
		Expect(d["label"]).To(Equal(int64(1)))
	})

	It("should apply overrides during a copy", func() {
		srcPath := seedColumnar(2)
		defer os.Remove(srcPath)

		src, err := fdd.Open(srcPath, "")
		Expect(err).NotTo(HaveOccurred())
		defer src.Close()

		path = tempPath()
		dest, err := fdd.NewWriter(path, fdd.Fresh, &fdd.Options{
			Columns: []fdd.Column{{Name: "text", Codec: "utf8"}, {Name: "label", Codec: "int64"}},
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(dest.CopyRowFrom(src, 0, "renamed", map[string]any{"label": int64(99)})).To(Succeed())
		Expect(dest.Close()).To(Succeed())

		r, err := fdd.Open(path, "")
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		row, err := r.Get("renamed")
		Expect(err).NotTo(HaveOccurred())
		label, err := row.ByName("label")
		Expect(err).NotTo(HaveOccurred())
		Expect(label).To(Equal(int64(99)))
	})
})
