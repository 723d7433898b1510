package technique

import "github.com/codeGROOVE-dev/orbit/pkg/behavior"

// situations holds situation, action and place for implementation intentions.
var situations = map[behavior.Domain][3]string{
	behavior.Health:       {"I wake up in the morning", "do 20 minutes of exercise", "in my living room"},
	behavior.Productivity: {"I finish my morning coffee", "work on my most important task", "at my desk"},
	behavior.Learning:     {"I have a 15-minute break", "review my study materials", "wherever I am"},
	behavior.Finance:      {"I receive my paycheck", "transfer money to savings", "using my banking app"},
}

var existingHabits = map[behavior.Domain][]string{
	behavior.Health:       {"brush my teeth", "drink my morning coffee", "check my phone"},
	behavior.Productivity: {"check my email", "sit down at my desk", "open my laptop"},
	behavior.Learning:     {"eat lunch", "commute to work", "take a break"},
	behavior.Finance:      {"get paid", "pay bills", "check my bank account"},
	behavior.Social:       {"eat dinner", "watch TV", "scroll social media"},
}

var newBehaviors = map[behavior.Domain]string{
	behavior.Health:       "do 10 push-ups",
	behavior.Productivity: "write down my top 3 priorities",
	behavior.Learning:     "read one page of my book",
	behavior.Finance:      "check my spending for the day",
	behavior.Social:       "text one friend to check in",
}

type proofStat struct {
	percentage int
	behavior   string
}

var socialProof = map[behavior.Domain]proofStat{
	behavior.Health:       {73, "exercise at least 3 times per week"},
	behavior.Productivity: {68, "use time-blocking to manage their schedule"},
	behavior.Learning:     {81, "spend at least 30 minutes daily learning new skills"},
	behavior.Finance:      {76, "save at least 10% of their income"},
	behavior.Social:       {84, "maintain regular contact with close friends"},
}

var losses = map[behavior.Domain]string{
	behavior.Health:       "your fitness progress and energy levels",
	behavior.Finance:      "potential savings and financial security",
	behavior.Productivity: "valuable time and opportunities",
	behavior.Learning:     "skill development and career advancement",
}

var environmentChanges = map[behavior.Domain]string{
	behavior.Health:       "your workout clothes next to the bed",
	behavior.Productivity: "a phone-free zone at your desk",
	behavior.Learning:     "your study materials open on the table",
	behavior.Finance:      "an automatic transfer into savings",
}
