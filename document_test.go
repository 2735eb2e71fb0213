package ripext

import (
	"fmt"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestParseDocument(t *testing.T) {
	convey.Convey("test object document", t, func() {
		doc := ParseDocument([]byte(`{"ok":true}`))
		convey.So(doc, convey.ShouldNotBeNil)
		convey.So(doc.IsObject(), convey.ShouldBeTrue)
		convey.So(doc.Object()["ok"], convey.ShouldEqual, true)
		convey.So(doc.Array(), convey.ShouldBeNil)
	})
	convey.Convey("test array document", t, func() {
		doc := ParseDocument([]byte(" [1, 2, 3]\n"))
		convey.So(doc, convey.ShouldNotBeNil)
		convey.So(doc.IsArray(), convey.ShouldBeTrue)
		convey.So(len(doc.Array()), convey.ShouldEqual, 3)
		convey.So(doc.String(), convey.ShouldEqual, "[1, 2, 3]")
	})
	convey.Convey("test bodies without a document", t, func() {
		for _, raw := range []string{"", "   ", "not json", `{"a":`, `"text"`, "42", "null"} {
			convey.So(ParseDocument([]byte(raw)), convey.ShouldBeNil)
		}
	})
	convey.Convey("test document does not alias the body", t, func() {
		raw := []byte(`{"a":1}`)
		doc := ParseDocument(raw)
		raw[1] = 'b'
		convey.So(doc.Get("a").Int(), convey.ShouldEqual, 1)
	})
}

func TestDocumentAccess(t *testing.T) {
	raw := []byte(`{"user":{"name":"gabe","age":30,"tags":["a","b"]},"active":true}`)
	convey.Convey("test path lookup", t, func() {
		doc := ParseDocument(raw)
		convey.So(doc.Get("user.name").String(), convey.ShouldEqual, "gabe")
		convey.So(doc.Get("user.age").Int(), convey.ShouldEqual, 30)
		convey.So(doc.Get("user.tags.1").String(), convey.ShouldEqual, "b")
		convey.So(doc.Get("missing").Exists(), convey.ShouldBeFalse)
	})
	convey.Convey("test decode into a struct", t, func() {
		type user struct {
			Name string   `json:"name"`
			Age  int      `json:"age"`
			Tags []string `json:"tags"`
		}
		var out struct {
			User   user `json:"user"`
			Active bool `json:"active"`
		}
		doc := ParseDocument(raw)
		err := doc.Decode(&out)
		convey.So(err, convey.ShouldBeNil)
		convey.So(out.User.Name, convey.ShouldEqual, "gabe")
		convey.So(out.User.Age, convey.ShouldEqual, 30)
		convey.So(out.User.Tags, convey.ShouldResemble, []string{"a", "b"})
		convey.So(out.Active, convey.ShouldBeTrue)
	})
}

func TestDocumentNumbers(t *testing.T) {
	raw := []byte(`{"id":9007199254740993,"ratio":0.25,"items":[18446744073709551615]}`)
	convey.Convey("test integers above 2^53 keep every digit", t, func() {
		doc := ParseDocument(raw)
		convey.So(doc, convey.ShouldNotBeNil)
		convey.So(fmt.Sprint(doc.Object()["id"]), convey.ShouldEqual, "9007199254740993")
		items, _ := doc.Object()["items"].([]interface{})
		convey.So(fmt.Sprint(items[0]), convey.ShouldEqual, "18446744073709551615")
		convey.So(doc.Get("id").Int(), convey.ShouldEqual, int64(9007199254740993))
	})
	convey.Convey("test decode keeps large integers exact", t, func() {
		var out struct {
			ID    int64   `json:"id"`
			Ratio float64 `json:"ratio"`
		}
		doc := ParseDocument(raw)
		err := doc.Decode(&out)
		convey.So(err, convey.ShouldBeNil)
		convey.So(out.ID, convey.ShouldEqual, int64(9007199254740993))
		convey.So(out.Ratio, convey.ShouldEqual, 0.25)
	})
}
