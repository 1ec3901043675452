package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/swdee/go-pointrend"
	"github.com/swdee/go-pointrend/backbone"
	"github.com/swdee/go-pointrend/predictor"
	"github.com/swdee/go-pointrend/preprocess"
	"github.com/swdee/go-pointrend/render"
	"github.com/swdee/go-pointrend/tensor"
	"gocv.io/x/gocv"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	imgFile := flag.String("i", "../data/street.jpg", "Image file to run semantic segmentation on")
	manifestFile := flag.String("b", "../data/deeplab/manifest.yaml", "Manifest of the dumped backbone coarse and res2 outputs")
	weightsFile := flag.String("w", "", "Manifest of the point predictor weight and bias tensors, random weights are used when empty")
	configFile := flag.String("c", "", "YAML file of point head parameters, defaults are used when empty")
	labelFile := flag.String("l", "../data/voc_21_labels_list.txt", "Text file containing model labels")
	saveFile := flag.String("o", "../data/street-pointrend-out.jpg", "The output JPG file with the segmentation overlay")
	renderFormat := flag.String("r", "mask", "The rendering format used for the class map [mask|dump]")
	inputSize := flag.Int("s", 512, "Square input size the backbone was run at")
	poolSize := flag.Int("p", 3, "Size of the model pool used for benchmarking")

	flag.Parse()

	params := pointrend.DefaultParams()

	if *configFile != "" {
		var err error
		params, err = pointrend.LoadParams(*configFile)

		if err != nil {
			log.Fatal("Error loading point head parameters: ", err)
		}
	}

	// load the backbone outputs dumped by the NPU run
	bb, err := backbone.LoadManifest(*manifestFile)

	if err != nil {
		log.Fatal("Error loading backbone manifest: ", err)
	}

	pred, err := loadPredictor(*weightsFile, params)

	if err != nil {
		log.Fatal("Error creating point predictor: ", err)
	}

	model, err := pointrend.New(bb, pred, params)

	if err != nil {
		log.Fatal("Error creating PointRend model: ", err)
	}

	// load in Model class names
	classNames, err := pointrend.LoadLabels(*labelFile, params.NumClasses)

	if err != nil {
		log.Fatal("Error loading model labels: ", err)
	}

	// load image
	img := gocv.IMRead(*imgFile, gocv.IMReadColor)

	if img.Empty() {
		log.Fatal("Error reading image from: ", *imgFile)
	}

	// convert colorspace and resize image
	rgbImg := gocv.NewMat()
	gocv.CvtColor(img, &rgbImg, gocv.ColorBGRToRGB)

	resizer := preprocess.NewResizer(img.Cols(), img.Rows(), *inputSize, *inputSize)

	cropImg := rgbImg.Clone()
	resizer.LetterBox(rgbImg, &cropImg, render.Black)

	defer img.Close()
	defer rgbImg.Close()
	defer cropImg.Close()
	defer resizer.Close()

	x, err := preprocess.ImagesToTensor([]gocv.Mat{cropImg}, preprocess.ImageNetNormalize())

	if err != nil {
		log.Fatal("Error converting image to tensor: ", err)
	}

	start := time.Now()

	// refine the coarse prediction up to the input resolution
	res, err := model.Forward(pointrend.Inference, x)

	if err != nil {
		log.Fatal("PointRend inference failed with error: ", err)
	}

	endInference := time.Now()

	mask, err := render.ClassMask(res[pointrend.OutputFine], 0)

	if err != nil {
		log.Fatal("Error computing class mask: ", err)
	}

	// strip the letterbox padding and scale back to the source image
	srcMask, err := render.ScaleMask(mask, *inputSize, *inputSize,
		resizer.ContentRect(), img.Cols(), img.Rows())

	if err != nil {
		log.Fatal("Error scaling class mask: ", err)
	}

	endMask := time.Now()

	switch *renderFormat {
	case "dump":
		// dump only the coloured class map to file
		err = render.PaintClassMapToFile(*saveFile, srcMask, img.Cols(), img.Rows())

		if err != nil {
			log.Fatal("Failed to dump class map to file: ", err)
		}

	case "mask":
		fallthrough
	default:
		err = render.SegmentMask(&img, srcMask, 0.5)

		if err != nil {
			log.Fatal("Failed to draw segmentation mask: ", err)
		}

		render.Legend(&img, srcMask, classNames, render.DefaultFont())
	}

	endRendering := time.Now()

	// output the classes found to stdout
	for _, class := range render.PresentClasses(srcMask) {
		fmt.Printf("%s\n", classNames[class])
	}

	coarse := res[pointrend.OutputCoarse]

	log.Printf("Refined %v coarse map to %v\n", coarse.Shape(), res[pointrend.OutputFine].Shape())

	log.Printf("Model first run speed: refinement=%s, mask=%s, rendering=%s, total time=%s\n",
		endInference.Sub(start).String(),
		endMask.Sub(endInference).String(),
		endRendering.Sub(endMask).String(),
		endRendering.Sub(start).String(),
	)

	// save the result
	if *renderFormat != "dump" {
		if ok := gocv.IMWrite(*saveFile, img); !ok {
			log.Fatal("Failed to save the image")
		}
	}

	log.Printf("Saved segmentation result to %s\n", *saveFile)

	// optional code.  run benchmark to get average time
	runBenchmark(bb, pred, params, x, *poolSize)

	log.Println("done")
}

// loadPredictor reads the point predictor from a weights manifest holding
// "weight" and "bias" tensors, or initialises random weights
func loadPredictor(file string, params pointrend.Params) (predictor.Predictor, error) {

	if file == "" {
		log.Println("No predictor weights given, using random initialisation")

		return predictor.NewLinearInit(params.InChannels, params.NumClasses,
			rand.New(rand.NewSource(params.Seed)))
	}

	tensors, err := backbone.LoadTensors(file)

	if err != nil {
		return nil, err
	}

	weight, ok := tensors["weight"]

	if !ok {
		return nil, fmt.Errorf("weights manifest %s has no \"weight\" tensor", file)
	}

	bias, ok := tensors["bias"]

	if !ok {
		return nil, fmt.Errorf("weights manifest %s has no \"bias\" tensor", file)
	}

	return predictor.NewLinearFromTensors(weight, bias)
}

func runBenchmark(bb pointrend.Backbone, pred predictor.Predictor,
	params pointrend.Params, x *tensor.Tensor, size int) {

	pool, err := pointrend.NewPool(size, bb, pred, params)

	if err != nil {
		log.Fatal("Error creating model pool: ", err)
	}

	defer pool.Close()

	count := 100
	start := time.Now()

	var wg sync.WaitGroup

	for i := 0; i < count; i++ {
		// pool.Get() blocks if no models are available in the pool
		model := pool.Get()

		wg.Add(1)

		go func(model *pointrend.PointRend) {
			defer wg.Done()
			defer pool.Return(model)

			if _, err := model.Forward(pointrend.Inference, x); err != nil {
				log.Printf("PointRend inference failed with error: %v\n", err)
			}
		}(model)
	}

	wg.Wait()

	end := time.Now()
	total := end.Sub(start)
	avg := total / time.Duration(count)

	log.Printf("Benchmark time=%s, count=%d, pool size=%d, average total time=%s\n",
		total.String(), count, size, avg.String(),
	)
}
