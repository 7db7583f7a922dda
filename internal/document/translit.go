package document

import "github.com/mehanizm/iuliia-go"

// receiptScheme собирается при инициализации пакета: первый вызов Translate
// достраивает таблицы схемы и не защищён от гонок.
var receiptScheme = prepareScheme(iuliia.Wikipedia)

func prepareScheme(s *iuliia.Schema) *iuliia.Schema {
	s.Translate("")
	return s
}

// Transliterate заменяет кириллицу латиницей для шрифтов без поддержки Unicode.
func Transliterate(s string) string {
	return receiptScheme.Translate(s)
}
