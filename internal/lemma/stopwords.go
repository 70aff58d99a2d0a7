package lemma

// closedClassWords lists conjunctions, prepositions, particles and
// interjections, already folded (ё -> е)
var closedClassWords = []string{
	// prepositions
	"без", "безо", "близ", "в", "во", "вместо", "вне", "для", "до", "за", "из", "изо",
	"из-за", "из-под", "к", "ко", "кроме", "между", "меж", "на", "над", "надо", "о",
	"об", "обо", "от", "ото", "перед", "передо", "пред", "по", "под", "подо", "при",
	"про", "ради", "с", "со", "сквозь", "среди", "у", "через", "чрез", "вокруг",
	"около", "после", "против", "вдоль", "внутри", "возле", "мимо", "сверх", "вслед",
	"благодаря", "согласно", "вопреки", "навстречу", "по-над",

	// conjunctions
	"и", "а", "но", "да", "или", "либо", "то", "не", "ни", "что", "чтобы", "чтоб",
	"как", "когда", "если", "ежели", "хотя", "хоть", "пока", "покуда", "будто",
	"словно", "точно", "тоже", "также", "зато", "однако", "причем", "притом",
	"поскольку", "потому", "оттого", "так", "итак", "ибо", "раз", "едва", "лишь",
	"дабы", "коли", "кабы", "нежели", "чем", "столь",

	// particles
	"бы", "б", "ли", "ль", "же", "ж", "вот", "вон", "даже", "уже", "еще", "ведь",
	"мол", "дескать", "де", "разве", "неужели", "неужто", "только", "именно",
	"почти", "ишь", "ка", "таки", "нет", "ага", "угу",

	// interjections
	"ах", "ох", "эх", "ой", "ай", "ух", "увы", "ого", "ура", "эй", "ну", "фу",
	"ха", "хм", "ахти", "батюшки", "браво", "тсс", "цыц", "ба", "ау", "алло",
}
