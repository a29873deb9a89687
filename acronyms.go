package main

// acronymGroups holds sets of interchangeable answers in normalized
// (formatRaw) form. If both the expected and the submitted answer fall in
// the same group they match regardless of length or containment rules.
var acronymGroups = []map[string]bool{
	{"usa": true, "unitedstates": true, "unitedstatesofamerica": true, "america": true},
	{"uk": true, "unitedkingdom": true, "greatbritain": true, "britain": true},
	{"ussr": true, "sovietunion": true, "unionofsovietsocialistrepublics": true},
	{"uae": true, "unitedarabemirates": true},
	{"un": true, "unitednations": true},
	{"eu": true, "europeanunion": true},
	{"nato": true, "northatlantictreatyorganization": true},
	{"nasa": true, "nationalaeronauticsandspaceadministration": true},
	{"fbi": true, "federalbureauofinvestigation": true},
	{"cia": true, "centralintelligenceagency": true},
	{"nyc": true, "newyorkcity": true},
	{"la": true, "losangeles": true},
	{"dc": true, "washingtondc": true},
	{"tv": true, "television": true},
	{"dna": true, "deoxyribonucleicacid": true},
	{"jfk": true, "johnfkennedy": true, "johnfitzgeraldkennedy": true},
	{"fdr": true, "franklindroosevelt": true, "franklindelanoroosevelt": true},
	{"mlk": true, "martinlutherking": true, "martinlutherkingjr": true},
	{"wwi": true, "worldwar1": true, "worldwarone": true, "thegreatwar": true},
	{"wwii": true, "worldwar2": true, "worldwartwo": true},
}
