package seed

import (
	_ "embed"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"drug_portfolio/portfolio/schema"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed fixtures.yaml
var fixturesYaml []byte

type seedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	FullName string `yaml:"full_name"`
	Email    string `yaml:"email"`
}

type milestoneTemplate struct {
	Title    string `yaml:"title"`
	Category string `yaml:"category"`
}

type fixtures struct {
	Users              []seedUser          `yaml:"users"`
	TherapeuticAreas   []string            `yaml:"therapeutic_areas"`
	MoleculeTypes      []string            `yaml:"molecule_types"`
	Leads              []string            `yaml:"leads"`
	Countries          []string            `yaml:"countries"`
	IndicationsByArea  map[string][]string `yaml:"indications_by_area"`
	TargetsByArea      map[string][]string `yaml:"targets_by_area"`
	MilestoneTemplates []milestoneTemplate `yaml:"milestone_templates"`
}

func loadFixtures() (fixtures, error) {
	var f fixtures
	if err := yaml.Unmarshal(fixturesYaml, &f); err != nil {
		return fixtures{}, fmt.Errorf("error parsing seed fixtures: %w", err)
	}
	return f, nil
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}

func ptr[T any](v T) *T {
	return &v
}

// randomDate returns a YYYY-MM-DD date uniformly distributed between the
// start of startYear and the end of endYear.
func randomDate(rng *rand.Rand, startYear, endYear int) string {
	start := time.Date(startYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(endYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	d := start.Add(time.Duration(rng.Int63n(int64(end.Sub(start)))))
	return d.Format("2006-01-02")
}

func (f *fixtures) randomCountries(rng *rand.Rand) string {
	shuffled := make([]string, len(f.Countries))
	copy(shuffled, f.Countries)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return strings.Join(shuffled[:rng.Intn(6)+1], ", ")
}

func (f *fixtures) buildUsers() ([]schema.User, error) {
	users := make([]schema.User, 0, len(f.Users))
	for _, u := range f.Users {
		hashedPwd, err := bcrypt.GenerateFromPassword([]byte(u.Password), 10)
		if err != nil {
			return nil, fmt.Errorf("error encrypting password for seed user %v: %w", u.Username, err)
		}
		users = append(users, schema.User{
			Id:           uuid.New(),
			Username:     u.Username,
			PasswordHash: hashedPwd,
			Role:         u.Role,
			FullName:     u.FullName,
			Email:        u.Email,
		})
	}
	return users, nil
}

func (f *fixtures) buildProgram(rng *rand.Rand, n int) schema.Program {
	area := f.TherapeuticAreas[n%len(f.TherapeuticAreas)]
	phase := pick(rng, schema.Phases)

	status := schema.DefaultProgramStatus
	if rng.Float64() <= 0.15 {
		status = pick(rng, schema.ProgramStatuses)
	}

	indication := pick(rng, f.IndicationsByArea[area])
	mol := pick(rng, f.MoleculeTypes)
	tgt := pick(rng, f.TargetsByArea[area])

	code := fmt.Sprintf("%v-%03d", strings.ToUpper(area[:3]), n+1)
	description := fmt.Sprintf(
		"A %v program investigating %v targeting %v for the treatment of %v.",
		strings.ToLower(phase), strings.ToLower(mol), tgt, strings.ToLower(indication),
	)

	return schema.Program{
		Id:              uuid.New(),
		Name:            fmt.Sprintf("%v %v for %v", mol, tgt, indication),
		Code:            code,
		TherapeuticArea: area,
		Phase:           phase,
		Status:          status,
		Indication:      indication,
		MoleculeType:    &mol,
		Target:          &tgt,
		Description:     &description,
		Lead:            ptr(pick(rng, f.Leads)),
		StartDate:       ptr(randomDate(rng, 2019, 2024)),
		ExpectedEndDate: ptr(randomDate(rng, 2025, 2030)),
	}
}

func (f *fixtures) buildStudies(rng *rand.Rand, program schema.Program) []schema.Study {
	numStudies := 2 + rng.Intn(4)
	studies := make([]schema.Study, 0, numStudies)

	for j := 0; j < numStudies; j++ {
		status := pick(rng, schema.StudyStatuses)

		targetEnroll := (rng.Intn(10) + 1) * 50
		currentEnroll := rng.Intn(targetEnroll)
		var endDate *string
		if status == "Completed" {
			currentEnroll = targetEnroll
			endDate = ptr(randomDate(rng, 2024, 2025))
		}

		description := fmt.Sprintf(
			"A %v clinical study evaluating %v in patients with %v.",
			strings.ToLower(program.Phase), strings.ToLower(*program.MoleculeType), strings.ToLower(program.Indication),
		)

		studies = append(studies, schema.Study{
			Id:                uuid.New(),
			ProgramId:         program.Id,
			Name:              fmt.Sprintf("%v-Study-%d: %v %v Trial", program.Code, j+1, program.Indication, program.Phase),
			ProtocolNumber:    fmt.Sprintf("%v-%02d", program.Code, j+1),
			Phase:             program.Phase,
			Status:            status,
			TargetEnrollment:  targetEnroll,
			CurrentEnrollment: currentEnroll,
			StartDate:         ptr(randomDate(rng, 2020, 2024)),
			EndDate:           endDate,
			SitesCount:        rng.Intn(150) + 5,
			Countries:         ptr(f.randomCountries(rng)),
			Description:       &description,
		})
	}

	return studies
}

func (f *fixtures) buildMilestones(rng *rand.Rand, program schema.Program, studies []schema.Study) []schema.Milestone {
	numMilestones := 4 + rng.Intn(5)

	templates := make([]milestoneTemplate, len(f.MilestoneTemplates))
	copy(templates, f.MilestoneTemplates)
	rng.Shuffle(len(templates), func(i, j int) {
		templates[i], templates[j] = templates[j], templates[i]
	})

	milestones := make([]schema.Milestone, 0, numMilestones)
	for _, tmpl := range templates[:numMilestones] {
		status := pick(rng, []string{"Pending", "In Progress", "Completed", "Delayed"})

		var studyId *uuid.UUID
		if rng.Float64() > 0.5 {
			studyId = ptr(pick(rng, studies).Id)
		}
		var actualDate *string
		if status == "Completed" {
			actualDate = ptr(randomDate(rng, 2023, 2025))
		}

		milestones = append(milestones, schema.Milestone{
			Id:          uuid.New(),
			ProgramId:   program.Id,
			StudyId:     studyId,
			Title:       tmpl.Title,
			Description: ptr(fmt.Sprintf("%v for %v", tmpl.Title, program.Code)),
			Category:    tmpl.Category,
			Status:      status,
			PlannedDate: ptr(randomDate(rng, 2023, 2028)),
			ActualDate:  actualDate,
		})
	}

	return milestones
}

// Seed replaces all rows in the database with generated demo data: the fixture
// users plus numPrograms programs, each with 2-5 studies and 4-8 milestones.
// Everything runs in one transaction, so a failure leaves the db untouched.
func Seed(db *gorm.DB, numPrograms int, rngSeed int64) error {
	f, err := loadFixtures()
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(rngSeed))

	users, err := f.buildUsers()
	if err != nil {
		return err
	}

	err = db.Transaction(func(txn *gorm.DB) error {
		for _, table := range []string{"milestones", "studies", "programs", "users"} {
			if result := txn.Exec("DELETE FROM " + table); result.Error != nil {
				return fmt.Errorf("error clearing table %v: %w", table, result.Error)
			}
		}

		if result := txn.Create(&users); result.Error != nil {
			return fmt.Errorf("error inserting seed users: %w", result.Error)
		}

		var studyCount, milestoneCount int
		for i := 0; i < numPrograms; i++ {
			program := f.buildProgram(rng, i)
			studies := f.buildStudies(rng, program)
			milestones := f.buildMilestones(rng, program, studies)

			if result := txn.Create(&program); result.Error != nil {
				return fmt.Errorf("error inserting seed program %v: %w", program.Code, result.Error)
			}
			if result := txn.Create(&studies); result.Error != nil {
				return fmt.Errorf("error inserting seed studies for %v: %w", program.Code, result.Error)
			}
			if result := txn.Create(&milestones); result.Error != nil {
				return fmt.Errorf("error inserting seed milestones for %v: %w", program.Code, result.Error)
			}

			studyCount += len(studies)
			milestoneCount += len(milestones)
		}

		slog.Info("database seeded", "users", len(users), "programs", numPrograms, "studies", studyCount, "milestones", milestoneCount)

		return nil
	})
	if err != nil {
		return fmt.Errorf("error seeding database: %w", err)
	}

	return nil
}
