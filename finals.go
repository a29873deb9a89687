package main

// finalClues is the curated pool the final clue is drawn from. The
// generation backend is deliberately not involved here: the last clue of a
// game should be a known-good question, not a gamble on model output.
var finalClues = []FinalClue{
	{
		Category: "World Capitals",
		Question: "This South American capital, at over 11,000 feet, is the highest administrative capital city in the world",
		Answer:   "La Paz",
	},
	{
		Category: "U.S. Presidents",
		Question: "He was the only U.S. president to serve two non-consecutive terms",
		Answer:   "Grover Cleveland",
	},
	{
		Category: "Famous Authors",
		Question: "This author published 'A Tale of Two Cities' and 'Great Expectations' within two years of each other",
		Answer:   "Charles Dickens",
	},
	{
		Category: "The Elements",
		Question: "This element, atomic number 79, has the chemical symbol Au",
		Answer:   "Gold",
	},
	{
		Category: "World History",
		Question: "The 1215 charter limiting the power of the English crown is known by this Latin name",
		Answer:   "Magna Carta",
	},
	{
		Category: "Astronomy",
		Question: "This planet's Great Red Spot is a storm larger than Earth that has raged for centuries",
		Answer:   "Jupiter",
	},
	{
		Category: "Classical Music",
		Question: "This composer wrote his ninth symphony, including the 'Ode to Joy', while almost completely deaf",
		Answer:   "Ludwig van Beethoven",
	},
	{
		Category: "Geography",
		Question: "This African river, the longest in the world by most measures, flows north into the Mediterranean",
		Answer:   "The Nile",
	},
	{
		Category: "Shakespeare",
		Question: "This tragedy's title character is the Prince of Denmark",
		Answer:   "Hamlet",
	},
	{
		Category: "Ancient Civilizations",
		Question: "The Rosetta Stone carries the same decree in Greek, Demotic, and this third script",
		Answer:   "Hieroglyphics",
	},
	{
		Category: "Inventors",
		Question: "This inventor held over 1,000 patents, including ones for the phonograph and a practical incandescent bulb",
		Answer:   "Thomas Edison",
	},
	{
		Category: "World Leaders",
		Question: "She was the United Kingdom's first female prime minister",
		Answer:   "Margaret Thatcher",
	},
	{
		Category: "The Human Body",
		Question: "This organ produces insulin and sits behind the stomach",
		Answer:   "The pancreas",
	},
	{
		Category: "Mythology",
		Question: "In Greek mythology, this Titan was condemned to hold up the sky for eternity",
		Answer:   "Atlas",
	},
	{
		Category: "Famous Paintings",
		Question: "This Dutch post-impressionist painted 'The Starry Night' while at an asylum in Saint-Rémy",
		Answer:   "Vincent van Gogh",
	},
	{
		Category: "The Olympics",
		Question: "This city is the only one to have hosted the Summer Olympics three times before 2012",
		Answer:   "London",
	},
	{
		Category: "Mathematics",
		Question: "This Greek letter denotes the ratio of a circle's circumference to its diameter",
		Answer:   "Pi",
	},
	{
		Category: "Space Exploration",
		Question: "This 1969 mission put the first humans on the Moon",
		Answer:   "Apollo 11",
	},
	{
		Category: "Literature",
		Question: "This dystopian novel by George Orwell introduced the phrase 'Big Brother is watching you'",
		Answer:   "1984",
	},
	{
		Category: "Composers",
		Question: "This Austrian prodigy composed his first symphony at age eight and died at 35 in 1791",
		Answer:   "Wolfgang Amadeus Mozart",
	},
}
